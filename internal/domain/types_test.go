package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Environment
		wantErr  bool
	}{
		{
			name:     "test environment",
			input:    "test",
			expected: EnvironmentTest,
		},
		{
			name:     "production with whitespace and case",
			input:    "  Production ",
			expected: EnvironmentProduction,
		},
		{
			name:    "staging is not supported",
			input:   "staging",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := ParseEnvironment(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidEnvironment))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, env)
		})
	}
}

func TestParsePartitionDate(t *testing.T) {
	d, err := ParsePartitionDate("2024-03-17")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC), d)
	assert.Equal(t, "2024-03-17", FormatPartitionDate(d))

	_, err = ParsePartitionDate("17/03/2024")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPartition))
}

func TestNewObjectIdentity_NormalizesDate(t *testing.T) {
	ts := time.Date(2024, 3, 17, 23, 59, 0, 0, time.FixedZone("UTC+2", 2*60*60))
	id := NewObjectIdentity("evt/cust/1_tn_1.jpg", ts, EnvironmentTest)

	assert.Equal(t, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC), id.PartitionDate)
	assert.NoError(t, id.Validate())
	assert.Equal(t, "test/2024-03-17/evt/cust/1_tn_1.jpg", id.String())
}

func TestObjectIdentity_Validate(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.ErrorIs(t, ObjectIdentity{PartitionDate: date, Environment: EnvironmentTest}.Validate(), ErrInvalidPartition)
	assert.ErrorIs(t, ObjectIdentity{ObjectKey: "k", Environment: EnvironmentTest}.Validate(), ErrInvalidPartition)
	assert.ErrorIs(t, ObjectIdentity{ObjectKey: "k", PartitionDate: date, Environment: "dev"}.Validate(), ErrInvalidEnvironment)
}

func TestParseSourcePartition(t *testing.T) {
	p, err := ParseSourcePartition("evt-42/allsports")
	require.NoError(t, err)
	assert.Equal(t, SourcePartition{EventID: "evt-42", CustomerID: "allsports"}, p)
	assert.Equal(t, "evt-42/allsports", p.ID())
	assert.Equal(t, "evt-42/allsports/", p.ListPrefix())

	for _, bad := range []string{"", "evt-42", "a/b/c", "/allsports"} {
		_, err := ParseSourcePartition(bad)
		assert.ErrorIs(t, err, ErrInvalidPartition, bad)
	}
}

func TestSourcePartition_ListPrefixOverride(t *testing.T) {
	p := SourcePartition{EventID: "e", CustomerID: "c", Prefix: "archive/2024/e"}
	assert.Equal(t, "archive/2024/e/", p.ListPrefix())
	assert.Equal(t, "archive/2024/e/", p.ID())
	assert.NoError(t, p.Validate())

	other := SourcePartition{Prefix: "archive/2024/f"}
	assert.NotEqual(t, SourcePartition{Prefix: "archive/2024/e"}.ID(), other.ID())

	assert.ErrorIs(t, SourcePartition{EventID: "e"}.Validate(), ErrInvalidPartition)
}

func TestParseSourceKey(t *testing.T) {
	tests := []struct {
		key      string
		expected SourceKeyInfo
	}{
		{
			key:      "evt-42/allsports/000123_tn_2.jpg",
			expected: SourceKeyInfo{EventID: "evt-42", CustomerID: "allsports", PhotoNum: "000123"},
		},
		{
			key:      "raw/evt-7/cust/IMG_0001.png",
			expected: SourceKeyInfo{EventID: "evt-7", CustomerID: "cust", PhotoNum: "IMG_0001"},
		},
		{
			key:      "loose.jpeg",
			expected: SourceKeyInfo{PhotoNum: "loose"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseSourceKey(tt.key))
		})
	}
}

func TestHasSupportedImageExtension(t *testing.T) {
	assert.True(t, HasSupportedImageExtension("a/b/c.JPG"))
	assert.True(t, HasSupportedImageExtension("a/b/c.jpeg"))
	assert.True(t, HasSupportedImageExtension("c.png"))
	assert.False(t, HasSupportedImageExtension("c.gif"))
	assert.False(t, HasSupportedImageExtension("a/b/"))
}

func TestRunSummary_HasLeftovers(t *testing.T) {
	assert.False(t, RunSummary{Processed: 10, Ingested: 10}.HasLeftovers())
	assert.True(t, RunSummary{Pending: 1}.HasLeftovers())
	assert.True(t, RunSummary{SkippedByQuota: 2}.HasLeftovers())
	assert.True(t, RunSummary{TasksFailed: 1}.HasLeftovers())
	assert.True(t, RunSummary{MaxImagesReached: true}.HasLeftovers())
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrInvariantViolation))
	assert.True(t, IsFatal(ErrContractNotFound))
	assert.True(t, IsConfigurationError(ErrInvalidEnvironment))
	assert.False(t, IsFatal(ErrTransient))
	assert.False(t, IsConfigurationError(ErrInvariantViolation))
}
