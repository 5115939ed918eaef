package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults: %v", err)
	}

	if cfg.Port != "8080" || cfg.GinMode != "release" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected server defaults: %+v", cfg)
	}
	if cfg.DBPath != "xbot.db" {
		t.Fatalf("unexpected DB path: %q", cfg.DBPath)
	}
	if !cfg.Posting.Enabled || cfg.Posting.FrequencyPerDay != 3 {
		t.Fatalf("unexpected posting defaults: %+v", cfg.Posting)
	}
	if cfg.Posting.WindowStart != "09:00" || cfg.Posting.WindowEnd != "21:00" || cfg.Posting.Timezone != "Europe/Paris" {
		t.Fatalf("unexpected window defaults: %+v", cfg.Posting)
	}
	if cfg.Engagement.PollInterval != 15*time.Minute || !cfg.Engagement.AutoLike || cfg.Engagement.AutoReply {
		t.Fatalf("unexpected engagement defaults: %+v", cfg.Engagement)
	}
	if cfg.Engagement.MaxRepliesPerDay != 20 || cfg.Engagement.RepliesPerConversation != 1 {
		t.Fatalf("unexpected engagement caps: %+v", cfg.Engagement)
	}
	if cfg.Monitoring.ReportTime != "08:00" || cfg.Monitoring.StatsInterval != time.Hour {
		t.Fatalf("unexpected monitoring defaults: %+v", cfg.Monitoring)
	}
	if cfg.Storage.KeepHistoryDays != 90 || cfg.Storage.CleanupEvery != 7 {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Content.MaxPostRunes != 280 {
		t.Fatalf("unexpected character limit: %d", cfg.Content.MaxPostRunes)
	}
}

func TestLoad_MirrorsLikesQuotaFromEngagement(t *testing.T) {
	t.Setenv("LIKES_PER_DAY", "42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engagement.MaxLikesPerDay != 42 || cfg.Quota.LikesPerDay != 42 {
		t.Fatalf("likes quota not mirrored: engagement=%d quota=%d",
			cfg.Engagement.MaxLikesPerDay, cfg.Quota.LikesPerDay)
	}
}

func TestLoad_NormalizesLogLevelAndGinMode(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("GIN_MODE", "bogus")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected warning -> warn, got %q", cfg.LogLevel)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("expected unknown gin mode coerced to release, got %q", cfg.GinMode)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"bad log level", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"frequency too high", "POSTING_FREQUENCY_PER_DAY", "51", "POSTING_FREQUENCY_PER_DAY"},
		{"bad window clock", "POSTING_WINDOW_START", "9am", "POSTING_WINDOW"},
		{"bad timezone", "POSTING_TIMEZONE", "Mars/Olympus", "POSTING_TIMEZONE"},
		{"poll too fast", "REPLY_POLL_INTERVAL", "10s", "REPLY_POLL_INTERVAL"},
		{"poll too slow", "REPLY_POLL_INTERVAL", "2h", "REPLY_POLL_INTERVAL"},
		{"conversation cap too high", "MAX_REPLIES_PER_CONVERSATION", "6", "MAX_REPLIES_PER_CONVERSATION"},
		{"bad report time", "REPORT_TIME", "25:00", "REPORT_TIME"},
		{"retention too short", "KEEP_HISTORY_DAYS", "3", "KEEP_HISTORY_DAYS"},
		{"cleanup cadence too long", "CLEANUP_EVERY_DAYS", "45", "CLEANUP_EVERY_DAYS"},
		{"temperature out of range", "CONTENT_TEMPERATURE", "1.5", "CONTENT_TEMPERATURE"},
		{"negative rate", "RATE_RPS", "-1", "RATE_RPS"},
		{"zero burst", "RATE_BURST", "0", "RATE_BURST"},
		{"bad sample ratio", "OTEL_TRACES_SAMPLER_ARG", "2", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			if err == nil {
				t.Fatalf("expected validation error for %s=%s", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %s", err, tc.want)
			}
		})
	}
}

func TestLoad_WrappingWindowIsAccepted(t *testing.T) {
	t.Setenv("POSTING_WINDOW_START", "22:00")
	t.Setenv("POSTING_WINDOW_END", "06:00")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("a window wrapping midnight must validate: %v", err)
	}
	if cfg.Posting.WindowStart != "22:00" || cfg.Posting.WindowEnd != "06:00" {
		t.Fatalf("window not preserved: %+v", cfg.Posting)
	}
}

func TestGetbool_AcceptedSpellings(t *testing.T) {
	cases := map[string]bool{
		"1": true, "true": true, "YES": true, "On": true, "y": true,
		"0": false, "false": false, "NO": false, "off": false, "n": false,
	}
	for raw, want := range cases {
		t.Setenv("SOME_FLAG", raw)
		if got := getbool("SOME_FLAG", !want); got != want {
			t.Fatalf("getbool(%q) = %v, want %v", raw, got, want)
		}
	}

	t.Setenv("SOME_FLAG", "maybe")
	if !getbool("SOME_FLAG", true) {
		t.Fatal("unparseable value must fall back to the default")
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" a, b ,, c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("splitCSV: %v", got)
	}
	if splitCSV("") != nil {
		t.Fatal("empty input must yield nil")
	}
}

func TestValidClock(t *testing.T) {
	for _, ok := range []string{"00:00", "09:30", "23:59"} {
		if !validClock(ok) {
			t.Fatalf("%q should be a valid clock time", ok)
		}
	}
	for _, bad := range []string{"24:00", "noon", ""} {
		if validClock(bad) {
			t.Fatalf("%q should be rejected", bad)
		}
	}
}
