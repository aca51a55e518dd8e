package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationKeyIsOrderIndependent(t *testing.T) {
	pairs := [][2]string{
		{"u1", "u2"},
		{"alice", "bob"},
		{"9f3a", "0b1c"},
		{"same", "same"},
	}
	for _, pair := range pairs {
		assert.Equal(t, ConversationKey(pair[0], pair[1]), ConversationKey(pair[1], pair[0]))
	}
}

func TestConversationKeyIsCanonical(t *testing.T) {
	assert.Equal(t, "u1_u2", ConversationKey("u2", "u1"))
	assert.Equal(t, "u1_u2", ConversationKey("u1", "u2"))
}

func TestParticipantsFromKey(t *testing.T) {
	user1, user2, ok := ParticipantsFromKey("u1_u2")
	require.True(t, ok)
	assert.Equal(t, "u1", user1)
	assert.Equal(t, "u2", user2)

	_, _, ok = ParticipantsFromKey("nounderscore")
	assert.False(t, ok)

	_, _, ok = ParticipantsFromKey("_u2")
	assert.False(t, ok)
}

func TestConversationPeer(t *testing.T) {
	conv := Conversation{Key: "u1_u2", User1ID: "u1", User2ID: "u2"}

	peer, ok := conv.Peer("u1")
	require.True(t, ok)
	assert.Equal(t, "u2", peer)

	peer, ok = conv.Peer("u2")
	require.True(t, ok)
	assert.Equal(t, "u1", peer)

	_, ok = conv.Peer("u3")
	assert.False(t, ok)
}
