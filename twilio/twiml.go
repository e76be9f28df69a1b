package twilio

import (
	"bytes"
	"encoding/xml"
)

// TwiML messaging response types. Twilio expects the webhook to answer
// with an XML document describing the reply message.

type twimlMessage struct {
	XMLName xml.Name `xml:"Message"`
	Body    string   `xml:"Body"`
	Media   []string `xml:"Media,omitempty"`
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message twimlMessage
}

// BuildTwiMLReply renders a messaging reply. Media entries that are not
// http(s) URLs are dropped.
func BuildTwiMLReply(body string, mediaURLs ...string) ([]byte, error) {
	msg := twimlMessage{Body: body}
	for _, m := range mediaURLs {
		if isHTTPURL(m) {
			msg.Media = append(msg.Media, m)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(twimlResponse{Message: msg}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
