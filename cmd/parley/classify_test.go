package main

import (
	"bytes"
	"strings"
	"testing"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestClassifyCmd_Historian(t *testing.T) {
	out, err := runCmd(t, "classify", "tell me about the history of Rome")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if !strings.Contains(out, "Rule:      historian") {
		t.Errorf("expected historian rule, got: %s", out)
	}
	if !strings.Contains(out, "act as a historian") {
		t.Errorf("expected historian directive, got: %s", out)
	}
	if !strings.Contains(out, `"tell me about the history of Rome"`) {
		t.Errorf("directive should embed the message, got: %s", out)
	}
}

func TestClassifyCmd_JoinsArgs(t *testing.T) {
	out, err := runCmd(t, "classify", "what", "a", "nice", "day")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if !strings.Contains(out, "Rule:      default") {
		t.Errorf("expected default rule, got: %s", out)
	}
	if !strings.Contains(out, "what a nice day") {
		t.Errorf("expected joined text in directive, got: %s", out)
	}
}

func TestClassifyCmd_HighThresholdFallsBack(t *testing.T) {
	out, err := runCmd(t, "classify", "--threshold", "1", "history lesson")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if !strings.Contains(out, "Rule:      default") {
		t.Errorf("half-matched rule should fall back at threshold 1, got: %s", out)
	}
}

func TestClassifyCmd_ZeroThresholdPicksPreset(t *testing.T) {
	out, err := runCmd(t, "classify", "--threshold", "0", "what a nice day")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if strings.Contains(out, "Rule:      default") {
		t.Errorf("threshold 0 should select a preset, got: %s", out)
	}
}

func TestClassifyCmd_BadThreshold(t *testing.T) {
	if _, err := runCmd(t, "classify", "--threshold", "2", "hi"); err == nil {
		t.Fatal("expected error for threshold > 1")
	}
}

func TestClassifyCmd_RequiresText(t *testing.T) {
	if _, err := runCmd(t, "classify"); err == nil {
		t.Fatal("expected error without text")
	}
}

func TestPresetsCmd(t *testing.T) {
	out, err := runCmd(t, "presets")
	if err != nil {
		t.Fatalf("presets failed: %v", err)
	}
	for _, want := range []string{"NAME", "historian", "history, historian", "wikipedia"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got: %s", want, out)
		}
	}
	if strings.Contains(out, "TONE") {
		t.Error("tones should be hidden without --tones")
	}
}

func TestPresetsCmd_Tones(t *testing.T) {
	out, err := runCmd(t, "presets", "--tones")
	if err != nil {
		t.Fatalf("presets failed: %v", err)
	}
	if !strings.Contains(out, "TONE") || !strings.Contains(out, "+1.00") || !strings.Contains(out, "-1.00") {
		t.Errorf("expected tone table, got: %s", out)
	}
}
