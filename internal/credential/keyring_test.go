package credential

import "testing"

func TestGet_EnvOverride(t *testing.T) {
	t.Setenv("MAILTRIAGE_IMAP_PASSWORD", "from-env")

	got, err := Get(KeyIMAPPassword)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "from-env" {
		t.Errorf("Get() = %q, want env override", got)
	}
}

func TestGet_APIKeyEnvOverride(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	got, err := Get(KeyAnthropicAPI)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "sk-test" {
		t.Errorf("Get() = %q, want env override", got)
	}
}
