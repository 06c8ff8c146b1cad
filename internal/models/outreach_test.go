package models

import "testing"

func TestValidTargetStatus(t *testing.T) {
	tests := []struct {
		status   string
		expected bool
	}{
		{TargetPending, true},
		{TargetResearching, true},
		{TargetDrafted, true},
		{TargetSent, true},
		{TargetOpened, true},
		{TargetReplied, true},
		{TargetLinkAcquired, true},
		{TargetDeclined, true},
		{"bounced", false},
		{"", false},
		{"Sent", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := ValidTargetStatus(tt.status); got != tt.expected {
				t.Errorf("ValidTargetStatus(%q) = %v, want %v", tt.status, got, tt.expected)
			}
		})
	}
}

func TestValidCampaignStatus(t *testing.T) {
	tests := []struct {
		status   string
		expected bool
	}{
		{CampaignPending, true},
		{CampaignRunning, true},
		{CampaignCompleted, true},
		{"failed", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := ValidCampaignStatus(tt.status); got != tt.expected {
				t.Errorf("ValidCampaignStatus(%q) = %v, want %v", tt.status, got, tt.expected)
			}
		})
	}
}

func TestCountsAsSentAndReplied(t *testing.T) {
	tests := []struct {
		status  string
		sent    bool
		replied bool
	}{
		{TargetPending, false, false},
		{TargetResearching, false, false},
		{TargetDrafted, false, false},
		{TargetSent, true, false},
		{TargetOpened, true, false},
		{TargetReplied, true, true},
		{TargetLinkAcquired, true, true},
		{TargetDeclined, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := CountsAsSent(tt.status); got != tt.sent {
				t.Errorf("CountsAsSent(%q) = %v, want %v", tt.status, got, tt.sent)
			}
			if got := CountsAsReplied(tt.status); got != tt.replied {
				t.Errorf("CountsAsReplied(%q) = %v, want %v", tt.status, got, tt.replied)
			}
		})
	}
}

func TestUser_DisplayName(t *testing.T) {
	tests := []struct {
		name     string
		user     User
		expected string
	}{
		{"name wins", User{Name: "Ada", Email: "ada@example.com", Sub: "s1"}, "Ada"},
		{"email fallback", User{Email: "ada@example.com", Sub: "s1"}, "ada@example.com"},
		{"sub fallback", User{Sub: "s1"}, "s1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.DisplayName(); got != tt.expected {
				t.Errorf("DisplayName() = %q, want %q", got, tt.expected)
			}
		})
	}
}
