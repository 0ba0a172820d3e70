package notify

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lukejeff/swapbench/internal/batch"
	slackapi "github.com/slack-go/slack"
)

type mockSlack struct {
	channel string
	texts   []string
	err     error
}

func (m *mockSlack) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.channel = channelID
	m.texts = append(m.texts, "sent")
	return "", "", m.err
}

type mockDiscord struct {
	channel string
	content string
	err     error
}

func (m *mockDiscord) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.channel = channelID
	m.content = content
	if m.err != nil {
		return nil, m.err
	}
	return &discordgo.Message{Content: content}, nil
}

func TestNewSlackValidation(t *testing.T) {
	if _, err := NewSlack(SlackOpts{Channel: "#swaps"}); err == nil {
		t.Error("expected error without token or client")
	}
	if _, err := NewSlack(SlackOpts{Token: "xoxb-test"}); err == nil {
		t.Error("expected error without channel")
	}
	if _, err := NewSlack(SlackOpts{Client: &mockSlack{}, Channel: "#swaps"}); err != nil {
		t.Errorf("NewSlack with injected client: %v", err)
	}
}

func TestSlackNotify(t *testing.T) {
	mock := &mockSlack{}
	s, err := NewSlack(SlackOpts{Client: mock, Channel: "#swaps"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Notify("batch done"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if mock.channel != "#swaps" {
		t.Errorf("posted to %q, want #swaps", mock.channel)
	}

	mock.err = errors.New("channel_not_found")
	if err := s.Notify("batch done"); err == nil {
		t.Error("expected error from failed post")
	}
}

func TestNewDiscordValidation(t *testing.T) {
	if _, err := NewDiscord(DiscordOpts{ChannelID: "123"}); err == nil {
		t.Error("expected error without token or session")
	}
	if _, err := NewDiscord(DiscordOpts{Token: "tok"}); err == nil {
		t.Error("expected error without channel id")
	}
}

func TestDiscordNotify(t *testing.T) {
	mock := &mockDiscord{}
	d, err := NewDiscord(DiscordOpts{Session: mock, ChannelID: "123"})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Notify("batch done"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if mock.channel != "123" || mock.content != "batch done" {
		t.Errorf("sent %q to %q, want batch done to 123", mock.content, mock.channel)
	}

	mock.err = errors.New("403")
	if err := d.Notify("batch done"); err == nil {
		t.Error("expected error from failed send")
	}
}

func TestMultiJoinsFailures(t *testing.T) {
	good := &mockDiscord{}
	bad := &mockDiscord{err: errors.New("boom")}
	d1, _ := NewDiscord(DiscordOpts{Session: good, ChannelID: "1"})
	d2, _ := NewDiscord(DiscordOpts{Session: bad, ChannelID: "2"})

	err := Multi{d1, d2}.Notify("hello")
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("err = %v, want joined failure", err)
	}
	if good.content != "hello" {
		t.Error("healthy notifier should still receive the message")
	}
}

func TestBatchDone(t *testing.T) {
	msg := BatchDone("v2,v4", &batch.Summary{
		Attempted: 10, Succeeded: 8, Failed: 2, Skipped: 5,
		Elapsed: 90 * time.Second,
	})
	for _, want := range []string{"v2,v4", "8/10", "80%", "2 failed", "5 skipped", "1m30s"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q: %s", want, msg)
		}
	}
}
