package vault

import (
	"github.com/goliatone/go-vault/core"
	"github.com/goliatone/go-vault/providers/discord"
	"github.com/goliatone/go-vault/providers/github"
	"github.com/goliatone/go-vault/providers/google"
)

func GoogleFlow(cfg google.Config) (core.Flow, error) {
	return google.New(cfg)
}

func GitHubFlow(cfg github.Config) (core.Flow, error) {
	return github.New(cfg)
}

func DiscordFlow(cfg discord.Config) (core.Flow, error) {
	return discord.New(cfg)
}
