package telephony

import (
	"encoding/xml"
	"fmt"
)

const (
	sayVoice    = "Polly.Joanna"
	dialTimeout = 30
)

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

type say struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr"`
	Text    string   `xml:",chardata"`
}

type pause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr"`
}

type dial struct {
	XMLName xml.Name `xml:"Dial"`
	Timeout int      `xml:"timeout,attr"`
	Record  string   `xml:"record,attr"`
	Number  string   `xml:"Number"`
}

type record struct {
	XMLName            xml.Name `xml:"Record"`
	MaxLength          int      `xml:"maxLength,attr"`
	Transcribe         bool     `xml:"transcribe,attr"`
	TranscribeCallback string   `xml:"transcribeCallback,attr,omitempty"`
}

// TwiML renders the call flow played to the seller: an introduction, a
// transfer to sellerNumber and a voicemail fallback.
func TwiML(item string, quantity int64, price float64, sellerNumber, transcribeCallback string) ([]byte, error) {
	doc := twimlResponse{Verbs: []any{
		say{Voice: sayVoice, Text: fmt.Sprintf("Hi! I'm calling about the %s you have listed. I'd like to negotiate a bulk purchase deal. Let me connect you with our negotiation agent.", item)},
		pause{Length: 1},
		say{Voice: sayVoice, Text: fmt.Sprintf("Our agent will discuss pricing for %d units currently priced at $%s each. We're looking to negotiate volume discounts. Please hold while I transfer you.", quantity, money(price))},
		dial{Timeout: dialTimeout, Record: "record-from-answer", Number: sellerNumber},
		say{Voice: sayVoice, Text: "I'm sorry, the seller is not available right now. Please try again later or leave a message."},
		record{MaxLength: 60, Transcribe: true, TranscribeCallback: transcribeCallback},
	}}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render twiml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
