package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostStatus(t *testing.T) {
	tests := []struct {
		status        PostStatus
		ownerSettable bool
	}{
		{PostStatusPending, true},
		{PostStatusPublished, true},
		{PostStatusFlagged, false},
		{PostStatusRemoved, false},
		{"", false},
		{"published", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.ownerSettable, tt.status.OwnerSettable())
		})
	}
}

func TestRoundCoord(t *testing.T) {
	assert.Equal(t, 40.4168, RoundCoord(40.41681))
	assert.Equal(t, -3.7038, RoundCoord(-3.70384))
	assert.Equal(t, 12.4965, RoundCoord(12.49645001))
	assert.Equal(t, 0.0, RoundCoord(0.00004))
}

func ptr[T any](v T) *T { return &v }

func newPost(id string, lat, lng float64) *Post {
	return &Post{ID: id, Lat: ptr(lat), Lng: ptr(lng)}
}

func TestClusterPosts(t *testing.T) {
	// 输入按创建时间倒序
	posts := []*Post{
		newPost("p5", 41.90281, 12.49641),
		newPost("p4", 40.41680, -3.70380),
		{ID: "p3"}, // 无坐标
		newPost("p2", 41.90279, 12.49639),
		newPost("p1", 48.85660, 2.35220),
	}

	clusters := ClusterPosts(posts, 0)
	require.Len(t, clusters, 3)

	assert.Equal(t, 41.9028, clusters[0].Lat)
	assert.Equal(t, 12.4964, clusters[0].Lng)
	require.Len(t, clusters[0].Posts, 2)
	assert.Equal(t, "p5", clusters[0].Posts[0].ID)
	assert.Equal(t, "p2", clusters[0].Posts[1].ID)

	assert.Equal(t, "p4", clusters[1].Posts[0].ID)
	assert.Equal(t, "p1", clusters[2].Posts[0].ID)
}

func TestClusterPostsLimit(t *testing.T) {
	posts := []*Post{
		newPost("a", 1, 1),
		newPost("b", 2, 2),
		newPost("c", 1, 1),
		newPost("d", 3, 3),
	}

	clusters := ClusterPosts(posts, 2)
	require.Len(t, clusters, 2)
	// 已有聚合点在达到上限后仍可接收成员
	assert.Len(t, clusters[0].Posts, 2)
	assert.Len(t, clusters[1].Posts, 1)
}

func TestClusterPostsEmpty(t *testing.T) {
	clusters := ClusterPosts([]*Post{{ID: "x"}}, 10)
	assert.NotNil(t, clusters)
	assert.Empty(t, clusters)
}

func TestNullableUnmarshal(t *testing.T) {
	var body struct {
		CityID Nullable[string]  `json:"cityId"`
		Lat    Nullable[float64] `json:"lat"`
		Lng    Nullable[float64] `json:"lng"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"cityId": null, "lat": 40.5}`), &body))

	assert.True(t, body.CityID.Set)
	assert.False(t, body.CityID.Valid)
	assert.Empty(t, body.CityID.Value)

	assert.True(t, body.Lat.Set)
	assert.True(t, body.Lat.Valid)
	assert.Equal(t, 40.5, body.Lat.Value)

	assert.False(t, body.Lng.Set)
}

func TestNullableUnmarshalTypeError(t *testing.T) {
	var n Nullable[float64]
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &n))
}

func TestNullableMarshal(t *testing.T) {
	b, err := json.Marshal(struct {
		A Nullable[string] `json:"a"`
		B Nullable[string] `json:"b"`
	}{A: NullableOf("x"), B: NullOf[string]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"x","b":null}`, string(b))
}

func TestPostPatchIsEmpty(t *testing.T) {
	assert.True(t, PostPatch{}.IsEmpty())
	assert.False(t, PostPatch{Title: ptr("t")}.IsEmpty())
	assert.False(t, PostPatch{CityID: NullOf[string]()}.IsEmpty())
	assert.False(t, PostPatch{Location: NullableOf(LatLng{Lat: 1, Lng: 2})}.IsEmpty())
	assert.False(t, PostPatch{Topics: &[]string{}}.IsEmpty())
}

func TestPostJSON(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	p := &Post{
		ID:        "p1",
		UserID:    "u1",
		Title:     "Tapas",
		Body:      "Great",
		Topics:    []string{"Food"},
		Status:    PostStatusPublished,
		CreatedAt: created,
	}
	b, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Nil(t, m["lat"])
	assert.Nil(t, m["city_id"])
	assert.NotContains(t, m, "city_name")
	assert.NotContains(t, m, "image_key")
	assert.Equal(t, "PUBLISHED", m["status"])
	assert.False(t, p.HasLocation())
}

func TestUserPublicHidesHash(t *testing.T) {
	hash := "bcrypt"
	u := &User{ID: "u1", Name: "Ana", Email: "ana@example.com", PasswordHash: &hash}
	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "bcrypt")
	assert.Equal(t, PublicUser{ID: "u1", Name: "Ana", Email: "ana@example.com"}, u.Public())
}

func TestTopicInsight(t *testing.T) {
	assert.Equal(t, []string{"Add more posts to see trends."}, TopicInsight(nil))
	assert.Equal(t, []string{"Food is currently the most active topic."},
		TopicInsight([]TopicCount{{Topic: "Food", Count: 3}, {Topic: "Travel", Count: 1}}))
}
