package telegram

import (
	"strings"
	"testing"
)

func TestFormatNotificationEscapesHTML(t *testing.T) {
	text := FormatNotification("New <match>", "Ravi & Asha")
	if !strings.Contains(text, "<b>New &lt;match&gt;</b>") {
		t.Fatalf("title not escaped: %q", text)
	}
	if !strings.Contains(text, "Ravi &amp; Asha") {
		t.Fatalf("message not escaped: %q", text)
	}
}

func TestCommandReplyContainsChatID(t *testing.T) {
	for _, command := range []string{"start", "help", "unknown"} {
		if reply := CommandReply(command, 424242); !strings.Contains(reply, "<code>424242</code>") {
			t.Fatalf("%s reply does not include chat id: %q", command, reply)
		}
	}
}
