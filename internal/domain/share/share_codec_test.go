package share

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

const (
	testKey = "0123456789abcdef0123456789abcdef"
	testIV  = "abcdef9876543210"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(testKey, testIV)
	require.NoError(t, err)
	return c
}

func TestCodec_RoundTrip(t *testing.T) {
	c := newTestCodec(t)
	refs := []locitypes.ShareRef{
		{OwnerID: "uid-123", ItineraryID: "5f7c1c9e-6a6b-4a43-9d7e-0f6a2b8d9c11"},
		{OwnerID: locitypes.GuestOwnerID, ItineraryID: "demo"},
		{OwnerID: "ünïcødé-owner", ItineraryID: strings.Repeat("x", 200)},
	}

	for _, ref := range refs {
		token, err := c.Encode(ref)
		require.NoError(t, err)
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")
		assert.NotContains(t, token, "=")

		got, err := c.Decode(token)
		require.NoError(t, err)
		assert.Equal(t, ref, got)
	}
}

func TestCodec_Deterministic(t *testing.T) {
	c := newTestCodec(t)
	ref := locitypes.ShareRef{OwnerID: "uid-1", ItineraryID: "trip-1"}

	a, err := c.Encode(ref)
	require.NoError(t, err)
	b, err := c.Encode(ref)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCodec_AcceptsRestoredPadding(t *testing.T) {
	c := newTestCodec(t)
	ref := locitypes.ShareRef{OwnerID: "uid-1", ItineraryID: "trip-1"}
	token, err := c.Encode(ref)
	require.NoError(t, err)

	padded := token + strings.Repeat("=", (4-len(token)%4)%4)
	got, err := c.Decode(padded)
	require.NoError(t, err)
	assert.Equal(t, ref, got)
}

func TestCodec_SingleCharacterMutationIsRejected(t *testing.T) {
	c := newTestCodec(t)
	ref := locitypes.ShareRef{OwnerID: "uid-123", ItineraryID: "5f7c1c9e-6a6b-4a43-9d7e-0f6a2b8d9c11"}
	token, err := c.Encode(ref)
	require.NoError(t, err)

	for i := range len(token) {
		for _, repl := range []byte{'A', 'q', '-', '_'} {
			if token[i] == repl {
				continue
			}
			mutated := token[:i] + string(repl) + token[i+1:]
			got, err := c.Decode(mutated)
			require.ErrorIs(t, err, locitypes.ErrInvalidShareToken, "position %d -> %q decoded to %+v", i, repl, got)
		}
	}
}

func TestCodec_MalformedTokens(t *testing.T) {
	c := newTestCodec(t)
	for _, token := range []string{"", "!!!", "abc", "AAAAAAAAAAAAAAAAAAAAAA", "not+url/safe"} {
		_, err := c.Decode(token)
		assert.ErrorIs(t, err, locitypes.ErrInvalidShareToken, "token %q", token)
	}
}

func TestCodec_WrongKeyIsRejected(t *testing.T) {
	token, err := newTestCodec(t).Encode(locitypes.ShareRef{OwnerID: "uid-1", ItineraryID: "trip-1"})
	require.NoError(t, err)

	other, err := NewCodec("another-key-of-arbitrary-length", testIV)
	require.NoError(t, err)
	_, err = other.Decode(token)
	assert.ErrorIs(t, err, locitypes.ErrInvalidShareToken)
}

func TestNewCodec_Validation(t *testing.T) {
	_, err := NewCodec(testKey, "short")
	assert.Error(t, err)
	_, err = NewCodec("", testIV)
	assert.Error(t, err)
}

func TestCodec_EncodeRequiresBothIDs(t *testing.T) {
	_, err := newTestCodec(t).Encode(locitypes.ShareRef{OwnerID: "uid-1"})
	assert.Error(t, err)
}
