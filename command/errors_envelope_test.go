package command

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-vault/core"
)

func TestSetSecretCommand_NilServiceReturnsRichError(t *testing.T) {
	var cmd *SetSecretCommand
	err := cmd.Execute(context.Background(), SetSecretMessage{})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.VaultErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.VaultErrorInternal, rich.TextCode)
	}
}
