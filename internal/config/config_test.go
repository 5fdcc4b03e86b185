package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LISTEN_ADDR", "PORT", "ASSEMBLYAI_API_KEY", "OPENAI_API_KEY",
		"YTDLP_PATH", "AUDIO_TEMP_DIR", "TRANSCRIBE_LANGUAGE",
		"EXTRACT_TIMEOUT", "TRANSCRIBE_POLL_INTERVAL", "TRANSCRIBE_POLL_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASSEMBLYAI_API_KEY", "aai-key")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":5000", cfg.ListenAddr)
	require.Equal(t, "yt-dlp", cfg.YtDlpPath)
	require.Equal(t, "en", cfg.Language)
	require.Equal(t, 2*time.Second, cfg.PollInterval)
	require.Equal(t, 10*time.Minute, cfg.PollTimeout)
	require.Equal(t, 10*time.Minute, cfg.ExtractTimeout)
	require.False(t, cfg.QuestionsEnabled())
}

func TestLoadMissingAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "ASSEMBLYAI_API_KEY")
}

func TestLoadPortFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASSEMBLYAI_API_KEY", "aai-key")
	t.Setenv("PORT", "8080")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.ListenAddr)
}

func TestLoadListenAddrWinsOverPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASSEMBLYAI_API_KEY", "aai-key")
	t.Setenv("PORT", "8080")
	t.Setenv("LISTEN_ADDR", "127.0.0.1:9999")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9999", cfg.ListenAddr)
}

func TestLoadDurationOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASSEMBLYAI_API_KEY", "aai-key")
	t.Setenv("TRANSCRIBE_POLL_INTERVAL", "500ms")
	t.Setenv("TRANSCRIBE_POLL_TIMEOUT", "1m")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	require.Equal(t, time.Minute, cfg.PollTimeout)
}

func TestLoadBadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASSEMBLYAI_API_KEY", "aai-key")
	t.Setenv("EXTRACT_TIMEOUT", "not-a-duration")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "EXTRACT_TIMEOUT")
}

func TestLoadQuestionsEnabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASSEMBLYAI_API_KEY", "aai-key")
	t.Setenv("OPENAI_API_KEY", "oai-key")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.QuestionsEnabled())
}

func TestValidatePollTimeoutMustExceedInterval(t *testing.T) {
	t.Parallel()

	cfg := Config{
		ListenAddr:     ":5000",
		AssemblyAIKey:  "k",
		YtDlpPath:      "yt-dlp",
		Language:       "en",
		ExtractTimeout: time.Minute,
		PollInterval:   10 * time.Second,
		PollTimeout:    5 * time.Second,
	}
	require.Error(t, cfg.Validate())
}
