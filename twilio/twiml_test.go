package twilio

import (
	"strings"
	"testing"
)

func TestBuildTwiMLReply(t *testing.T) {
	out, err := BuildTwiMLReply("Got the photo. Processing.")
	if err != nil {
		t.Fatalf("BuildTwiMLReply: %v", err)
	}
	xml := string(out)
	if !strings.Contains(xml, "<Response>") || !strings.Contains(xml, "</Response>") {
		t.Errorf("missing Response element: %s", xml)
	}
	if !strings.Contains(xml, "<Body>Got the photo. Processing.</Body>") {
		t.Errorf("missing Body: %s", xml)
	}
	if strings.Contains(xml, "<Media>") {
		t.Errorf("unexpected Media element: %s", xml)
	}
}

func TestBuildTwiMLReplyWithMedia(t *testing.T) {
	out, err := BuildTwiMLReply("Send the label photo.",
		"https://example.com/label.jpg",
		"ftp://example.com/skip.jpg",
		"")
	if err != nil {
		t.Fatalf("BuildTwiMLReply: %v", err)
	}
	xml := string(out)
	if !strings.Contains(xml, "<Media>https://example.com/label.jpg</Media>") {
		t.Errorf("missing media URL: %s", xml)
	}
	if strings.Contains(xml, "ftp://") {
		t.Errorf("non-http media must be dropped: %s", xml)
	}
}

func TestBuildTwiMLReplyEscapes(t *testing.T) {
	out, err := BuildTwiMLReply("Retake <blurry> & resend")
	if err != nil {
		t.Fatalf("BuildTwiMLReply: %v", err)
	}
	if !strings.Contains(string(out), "Retake &lt;blurry&gt; &amp; resend") {
		t.Errorf("body not escaped: %s", out)
	}
}

func TestSendMessageUnconfigured(t *testing.T) {
	c := NewClient("", "", "")
	if c.Configured() {
		t.Error("empty client must not report configured")
	}
	if _, err := c.SendMessage("whatsapp:+911234567890", "hi", ""); err == nil {
		t.Error("expected error without credentials")
	}
}
