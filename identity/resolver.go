package identity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSubjectMissing marks a profile payload that carries no usable subject
// identifier.
var ErrSubjectMissing = errors.New("identity: profile subject missing")

// UserProfile is the provider-independent projection of a user-info payload.
// Raw keeps the original document for callers that need provider extras.
type UserProfile struct {
	ProviderTag   string
	Subject       string
	Username      string
	Email         string
	EmailVerified bool
	Name          string
	AvatarURL     string
	Raw           map[string]any
}

// ExternalID is the stable cross-provider identifier for the profile.
func (p UserProfile) ExternalID() string {
	subject := strings.TrimSpace(p.Subject)
	if subject == "" {
		return ""
	}
	tag := strings.TrimSpace(p.ProviderTag)
	if tag == "" {
		return subject
	}
	return tag + "|" + subject
}

func (p UserProfile) Map() map[string]any {
	metadata := map[string]any{
		"provider":       strings.TrimSpace(p.ProviderTag),
		"subject":        strings.TrimSpace(p.Subject),
		"external_id":    p.ExternalID(),
		"username":       strings.TrimSpace(p.Username),
		"email":          strings.TrimSpace(p.Email),
		"email_verified": p.EmailVerified,
		"name":           strings.TrimSpace(p.Name),
		"avatar_url":     strings.TrimSpace(p.AvatarURL),
	}
	if len(p.Raw) > 0 {
		metadata["raw"] = copyMap(p.Raw)
	}
	return metadata
}

// Normalizer converts one provider's raw user-info document into a profile.
type Normalizer func(tag string, payload map[string]any) UserProfile

// Resolver maps provider tags to normalizers, falling back to a generic
// best-effort normalizer for unknown providers.
type Resolver struct {
	normalizers map[string]Normalizer
	fallback    Normalizer
}

func NewResolver() *Resolver {
	return &Resolver{
		normalizers: map[string]Normalizer{},
		fallback:    genericNormalizer,
	}
}

// DefaultResolver knows the built-in provider payload shapes.
func DefaultResolver() *Resolver {
	resolver := NewResolver()
	resolver.RegisterNormalizer("google", googleNormalizer)
	resolver.RegisterNormalizer("github", githubNormalizer)
	resolver.RegisterNormalizer("discord", discordNormalizer)
	return resolver
}

func (r *Resolver) RegisterNormalizer(tag string, normalizer Normalizer) {
	if r == nil || normalizer == nil {
		return
	}
	tag = strings.TrimSpace(strings.ToLower(tag))
	if tag == "" {
		return
	}
	r.normalizers[tag] = normalizer
}

// Resolve normalizes a raw user-info payload for the given provider tag.
func (r *Resolver) Resolve(tag string, payload map[string]any) (UserProfile, error) {
	if r == nil {
		return UserProfile{}, fmt.Errorf("identity: resolver is nil")
	}
	if len(payload) == 0 {
		return UserProfile{}, fmt.Errorf("identity: profile payload is empty")
	}
	tag = strings.TrimSpace(strings.ToLower(tag))

	normalizer := r.fallback
	if known, ok := r.normalizers[tag]; ok {
		normalizer = known
	}
	profile := normalizer(tag, payload)
	if strings.TrimSpace(profile.Subject) == "" {
		return UserProfile{}, ErrSubjectMissing
	}
	profile.ProviderTag = tag
	profile.Raw = copyMap(payload)
	return profile, nil
}

func googleNormalizer(tag string, payload map[string]any) UserProfile {
	return UserProfile{
		ProviderTag:   tag,
		Subject:       readString(payload, "sub"),
		Email:         readString(payload, "email"),
		EmailVerified: readBool(payload, "email_verified"),
		Name:          readString(payload, "name"),
		AvatarURL:     readString(payload, "picture"),
	}
}

func githubNormalizer(tag string, payload map[string]any) UserProfile {
	return UserProfile{
		ProviderTag: tag,
		Subject:     readString(payload, "id"),
		Username:    readString(payload, "login"),
		Email:       readString(payload, "email"),
		Name:        readString(payload, "name"),
		AvatarURL:   readString(payload, "avatar_url"),
	}
}

func discordNormalizer(tag string, payload map[string]any) UserProfile {
	username := readString(payload, "global_name")
	if username == "" {
		username = readString(payload, "username")
	}
	subject := readString(payload, "id")
	avatarURL := ""
	if hash := readString(payload, "avatar"); hash != "" && subject != "" {
		avatarURL = "https://cdn.discordapp.com/avatars/" + subject + "/" + hash + ".png"
	}
	return UserProfile{
		ProviderTag:   tag,
		Subject:       subject,
		Username:      username,
		Email:         readString(payload, "email"),
		EmailVerified: readBool(payload, "verified"),
		Name:          username,
		AvatarURL:     avatarURL,
	}
}

func genericNormalizer(tag string, payload map[string]any) UserProfile {
	subject := ""
	for _, key := range []string{"sub", "id", "user_id", "login"} {
		if value := readString(payload, key); value != "" {
			subject = value
			break
		}
	}
	return UserProfile{
		ProviderTag:   tag,
		Subject:       subject,
		Username:      readString(payload, "login"),
		Email:         readString(payload, "email"),
		EmailVerified: readBool(payload, "email_verified"),
		Name:          readString(payload, "name"),
	}
}

func readString(payload map[string]any, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return fmt.Sprintf("%.0f", typed)
	default:
		trimmed := strings.TrimSpace(fmt.Sprint(value))
		if trimmed == "<nil>" {
			return ""
		}
		return trimmed
	}
}

func readBool(payload map[string]any, key string) bool {
	value, ok := payload[key]
	if !ok || value == nil {
		return false
	}
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		return strings.EqualFold(strings.TrimSpace(typed), "true")
	default:
		return false
	}
}

func copyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
