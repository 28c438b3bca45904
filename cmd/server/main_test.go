package main

import (
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"

	ac "github.com/Aditi7Singh/github-issue-assistant/internal/cfg"
)

func TestNewProvider(t *testing.T) {
	t.Parallel()

	base := ac.Config{
		OpenAIAPIKey: "sk-test",
		OpenAIModel:  "gpt-4o-mini",
		GeminiAPIKey: "AIza-test",
		GeminiModel:  "gemini-2.0-flash",
		ClaudeAPIKey: "sk-ant-test",
		ClaudeModel:  "claude-sonnet-4-20250514",
	}

	tests := []struct {
		provider  string
		wantName  string
		wantModel string
	}{
		{ac.ProviderOpenAI, "openai", "gpt-4o-mini"},
		{ac.ProviderGemini, "gemini", "gemini-2.0-flash"},
		{ac.ProviderClaude, "claude", "claude-sonnet-4-20250514"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			t.Parallel()

			c := base
			c.LLMProvider = tt.provider
			p, err := newProvider(c)
			if err != nil {
				t.Fatalf("newProvider: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name = %q, want %q", p.Name(), tt.wantName)
			}
			if p.Model() != tt.wantModel {
				t.Errorf("Model = %q, want %q", p.Model(), tt.wantModel)
			}
		})
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	t.Parallel()

	c := ac.Config{LLMProvider: "bedrock"}
	if _, err := newProvider(c); err == nil {
		t.Fatal("expected error for unknown provider")
	} else if !strings.Contains(err.Error(), "bedrock") {
		t.Errorf("error = %q, want it to name the provider", err)
	}
}

func TestNotifySystemd_NoSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	err := notifySystemd()
	if err == nil {
		t.Fatal("expected error when NOTIFY_SOCKET is empty")
	}
	if !strings.Contains(err.Error(), "NOTIFY_SOCKET not set") {
		t.Errorf("error = %q, want substring %q", err, "NOTIFY_SOCKET not set")
	}
}

func TestNotifySystemd_InvalidPath(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", filepath.Join(t.TempDir(), "nonexistent.sock"))

	err := notifySystemd()
	if err == nil {
		t.Fatal("expected error for nonexistent socket")
	}
	if !strings.Contains(err.Error(), "dial failed") {
		t.Errorf("error = %q, want substring %q", err, "dial failed")
	}
}

func TestNotifySystemd_Success(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "notify.sock")

	// Create a real unixgram listener.
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(context.Background(), "unixgram", sockPath)
	if err != nil {
		t.Fatalf("listen unixgram: %v", err)
	}
	defer func() { _ = conn.Close() }()

	t.Setenv("NOTIFY_SOCKET", sockPath)

	if err := notifySystemd(); err != nil {
		t.Fatalf("notifySystemd() = %v, want nil", err)
	}

	buf := make([]byte, 256)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read from socket: %v", err)
	}

	got := string(buf[:n])
	if got != "READY=1" {
		t.Errorf("payload = %q, want %q", got, "READY=1")
	}
}
