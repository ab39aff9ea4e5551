package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "user.12", UserChannel(12))
	assert.Equal(t, "group.7", GroupChannel(7))

	kind, id, err := ParseChannel("group.7")
	require.NoError(t, err)
	assert.Equal(t, KindGroup, kind)
	assert.EqualValues(t, 7, id)

	kind, id, err = ParseChannel(UserChannel(3))
	require.NoError(t, err)
	assert.Equal(t, KindUser, kind)
	assert.EqualValues(t, 3, id)
}

func TestParseChannelRejectsGarbage(t *testing.T) {
	for _, name := range []string{"", "group", "group.", "group.x", "group.0", "lobby.4", "user.-1"} {
		_, _, err := ParseChannel(name)
		assert.Error(t, err, name)
	}
}

func TestPostDeletedCarriesOnlyID(t *testing.T) {
	b, err := json.Marshal(PostDeleted{PostID: 9})
	require.NoError(t, err)
	assert.JSONEq(t, `{"post_id":9}`, string(b))
}

func TestPostLikedPayload(t *testing.T) {
	ev := PostLiked{PostID: 4, LikesCount: 2, ActorID: 5, LikedByActor: true}
	assert.Equal(t, "post.liked", ev.EventName())
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"post_id":4,"likes_count":2,"actor_id":5,"liked_by_actor":true}`, string(b))
}
