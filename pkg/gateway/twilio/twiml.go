package twilio

import (
	"bytes"
	"encoding/xml"
)

// TwiML document types. Only the verbs the gateway emits are modeled.

type response struct {
	XMLName xml.Name  `xml:"Response"`
	Say     []say     `xml:"Say,omitempty"`
	Pause   *pause    `xml:"Pause,omitempty"`
	Connect *connect  `xml:"Connect,omitempty"`
	Hangup  *struct{} `xml:"Hangup,omitempty"`
}

type say struct {
	Text string `xml:",chardata"`
}

type pause struct {
	Length int `xml:"length,attr"`
}

type connect struct {
	Stream stream `xml:"Stream"`
}

type stream struct {
	URL        string      `xml:"url,attr"`
	Parameters []parameter `xml:"Parameter,omitempty"`
}

type parameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func render(doc response) string {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		// The document is built from static structs; encoding cannot fail
		// outside programmer error.
		panic(err)
	}
	buf.WriteString("\n")
	return buf.String()
}

// ConnectStreamTwiML greets the caller and bridges the call into the media
// stream websocket, passing the caller number as a stream parameter.
func ConnectStreamTwiML(greeting, streamURL, callerNumber string) string {
	doc := response{
		Connect: &connect{Stream: stream{
			URL:        streamURL,
			Parameters: []parameter{{Name: "callerNumber", Value: callerNumber}},
		}},
	}
	if greeting != "" {
		doc.Say = []say{{Text: greeting}}
		doc.Pause = &pause{Length: 1}
	}
	return render(doc)
}

// BusyTwiML politely declines the call when the single line is occupied.
func BusyTwiML() string {
	return render(response{
		Say:    []say{{Text: "I'm on another call right now. Please try again in a few minutes."}},
		Hangup: &struct{}{},
	})
}

// OutboundTwiML is the document for calls the gateway itself places.
func OutboundTwiML(streamURL, callerNumber string) string {
	return ConnectStreamTwiML("", streamURL, callerNumber)
}
