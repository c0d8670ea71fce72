// Package wire renders messages into the line-oriented frame format delivered
// to streaming clients: optional "id:" and "event:" fields, one "data:" line
// per newline-split payload line, terminated by a blank line. The format is a
// compatibility surface and must not drift.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pushgate/pushgate/internal/domain/model"
)

// Frame appends one wire frame to dst. data is written as-is, split on '\n'
// so every payload line carries its own "data: " prefix.
func Frame(dst *bytes.Buffer, id, event string, data []byte) {
	if id != "" {
		dst.WriteString("id: ")
		dst.WriteString(id)
		dst.WriteByte('\n')
	}
	if event != "" {
		dst.WriteString("event: ")
		dst.WriteString(event)
		dst.WriteByte('\n')
	}
	start := 0
	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			dst.WriteString("data: ")
			dst.Write(data[start:i])
			dst.WriteByte('\n')
			start = i + 1
		}
	}
	dst.WriteByte('\n')
}

// EncodeMessage renders m into its wire frame, serializing the payload as
// JSON. The result is cached on the message so a broadcast encodes once no
// matter how many subscribers receive it.
func EncodeMessage(m *model.Message) ([]byte, error) {
	if cached := m.GetCached(); cached != nil {
		return cached, nil
	}

	data, err := json.Marshal(m.Data)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal payload for message %s: %w", m.ID, err)
	}

	var buf bytes.Buffer
	Frame(&buf, m.ID, m.Event, data)

	frame := buf.Bytes()
	m.SetCached(frame)
	return frame, nil
}
