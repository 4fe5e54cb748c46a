package core

import (
	"errors"
	"testing"
)

func TestFindStatusTransition(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		from         ClaimStatus
		to           ClaimStatus
		expectedRule ExecutorRule
		expectedErr  bool
	}{
		{ClaimStatusOpen, ClaimStatusInProgress, ExecutorRequired, false},
		{ClaimStatusOpen, ClaimStatusCancelled, ExecutorCleared, false},
		{ClaimStatusInProgress, ClaimStatusOpen, ExecutorCleared, false},
		{ClaimStatusInProgress, ClaimStatusExecuted, ExecutorKept, false},
		{ClaimStatusOpen, ClaimStatusExecuted, 0, true},
		{ClaimStatusCancelled, ClaimStatusOpen, 0, true},
		{ClaimStatusExecuted, ClaimStatusInProgress, 0, true},
		{ClaimStatusOpen, ClaimStatusOpen, 0, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			transition, err := FindStatusTransition(tt.from, tt.to)
			if tt.expectedErr {
				if !errors.Is(err, ErrInvalidStatusTransition) {
					t.Errorf("got %v, want ErrInvalidStatusTransition", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if transition.Executor != tt.expectedRule {
				t.Errorf("got rule %v, want %v", transition.Executor, tt.expectedRule)
			}
		})
	}
}

func TestParseClaimStatus(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"OPEN", "IN_PROGRESS", "CANCELLED", "EXECUTED"} {
		status, err := ParseClaimStatus(s)
		if err != nil || string(status) != s {
			t.Errorf("ParseClaimStatus(%q) = %v, %v", s, status, err)
		}
	}
	if _, err := ParseClaimStatus("open"); err == nil {
		t.Errorf("expected error for lower case status")
	}
}

func TestUserFullName(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		user     User
		expected string
	}{
		{User{LastName: "Ivanov", FirstName: "Ivan", MiddleName: "Ivanovich"}, "Ivanov Ivan Ivanovich"},
		{User{LastName: "Ivanov", FirstName: "Ivan"}, "Ivanov Ivan"},
		{User{LastName: "Ivanov"}, "Ivanov"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.user.FullName(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
