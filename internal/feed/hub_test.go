package feed

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"bookhub/internal/crawler"
	"bookhub/pkg/models"
)

func TestBroadcastDeliversEventLine(t *testing.T) {
	hub := NewHub()
	client, server := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })
	hub.Add(server)

	raw := 9.0
	go hub.Broadcast(crawler.Event{
		Type: crawler.EventPlatformResult,
		Rating: &models.PlatformRating{
			Platform:  "aladin",
			BookTitle: "밝은 밤",
			RawRating: &raw,
		},
	})

	line, err := bufio.NewReader(client).ReadBytes('\n')
	require.NoError(t, err)

	var ev crawler.Event
	require.NoError(t, json.Unmarshal(line, &ev))
	require.Equal(t, crawler.EventPlatformResult, ev.Type)
	require.NotNil(t, ev.Rating)
	require.Equal(t, "aladin", ev.Rating.Platform)
}

func TestBroadcastDropsDeadObserver(t *testing.T) {
	hub := NewHub()
	client, server := net.Pipe()
	hub.Add(server)
	require.Equal(t, 1, hub.Stats().TCPObservers)

	_ = client.Close()
	hub.Broadcast(crawler.Event{Type: crawler.EventDone})

	require.Equal(t, 0, hub.Stats().TCPObservers)
}

func TestWelcomeAnnouncesObserverCount(t *testing.T) {
	hub := NewHub()
	client, server := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })
	hub.Add(server)

	go hub.Welcome(server)

	line, err := bufio.NewReader(client).ReadBytes('\n')
	require.NoError(t, err)

	var g greeting
	require.NoError(t, json.Unmarshal(line, &g))
	require.Equal(t, "welcome", g.Type)
	require.Equal(t, "tcp", g.Transport)
	require.Equal(t, 1, g.Observers)
}
