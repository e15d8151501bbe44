package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImage_DecodeOptionalFields(t *testing.T) {
	raw := `{"id":"7","filename":"cat.jpg","url":"/uploads/cat.jpg","tags":["cat","indoor"],
		"scene":"living room","mood":null,"confidence":0.87,"created_at":"2024-05-01T10:00:00Z"}`

	var img Image
	require.NoError(t, json.Unmarshal([]byte(raw), &img))

	scene, ok := img.Scene.Get()
	assert.True(t, ok)
	assert.Equal(t, "living room", scene)
	assert.False(t, img.Mood.Valid)
	assert.False(t, img.Description.Valid)
	assert.Equal(t, "calm", img.Mood.Or("calm"))
	assert.Equal(t, []string{"cat", "indoor"}, img.Tags)
}

func TestImage_EncodeAbsentAsNull(t *testing.T) {
	img := Image{ID: "1", Scene: Some("beach")}
	b, err := json.Marshal(img)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"scene":"beach"`)
	assert.Contains(t, string(b), `"mood":null`)
}

func TestImage_AssetURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{url: "/uploads/a.jpg", want: "http://localhost:8000/uploads/a.jpg"},
		{url: "uploads/a.jpg", want: "http://localhost:8000/uploads/a.jpg"},
		{url: "https://cdn.example.com/a.jpg", want: "https://cdn.example.com/a.jpg"},
		{url: "", want: ""},
	}
	for _, tc := range cases {
		img := Image{URL: tc.url}
		assert.Equal(t, tc.want, img.AssetURL("http://localhost:8000/"), tc.url)
	}
}

func TestImage_CloneDoesNotShareTags(t *testing.T) {
	img := Image{Tags: []string{"a", "b"}}
	c := img.Clone()
	c.Tags[0] = "z"
	assert.Equal(t, "a", img.Tags[0])
}
