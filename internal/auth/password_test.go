package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("Dsdasj2dskl1", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, ComparePassword(hash, "Dsdasj2dskl1"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}

func TestPasswordProblems(t *testing.T) {
	tests := []struct {
		name     string
		password string
		username string
		problems int
	}{
		{"strong", "Dsdasj2dskl1", "alice", 0},
		{"too short", "Ab1", "alice", 1},
		{"common", "password123", "alice", 1},
		{"numeric", "1234567890", "alice", 1},
		{"short numeric", "1234", "alice", 2},
		{"contains username", "alice-in-wonderland", "alice", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, PasswordProblems(tt.password, tt.username), tt.problems)
		})
	}
}
