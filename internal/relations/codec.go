package relations

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// fileDoc is the on-disk shape: a JSON object mapping group id to an array
// of records. Group order is significant and preserved in both directions.
type fileDoc struct {
	Groups []groupDoc
}

type groupDoc struct {
	ID      string
	Records []recordDoc
}

type recordDoc struct {
	PartnerName   string  `json:"palace1_name"`
	PartnerID     string  `json:"palace2_name"`
	TheirDiplomat string  `json:"diplomat2"`
	OurDiplomat   string  `json:"diplomat1"`
	Screenshot    *string `json:"screenshot"`
}

// MarshalJSON writes groups as object members in slice order.
func (d fileDoc) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range d.Groups {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalRaw(g.ID)
		if err != nil {
			return nil, err
		}
		records := g.Records
		if records == nil {
			records = []recordDoc{}
		}
		val, err := marshalRaw(records)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalRaw encodes v without HTML escaping and without the trailing newline.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON reads object members in document order.
func (d *fileDoc) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("relations: expected object, got %v", tok)
	}
	d.Groups = nil
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("relations: expected group id, got %v", tok)
		}
		var records []recordDoc
		if err := dec.Decode(&records); err != nil {
			return fmt.Errorf("relations: group %q: %w", id, err)
		}
		d.Groups = append(d.Groups, groupDoc{ID: id, Records: records})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func toRecordDoc(r Record) recordDoc {
	rd := recordDoc{
		PartnerName:   r.PartnerName,
		PartnerID:     r.PartnerID,
		TheirDiplomat: r.TheirDiplomat,
		OurDiplomat:   r.OurDiplomat,
	}
	if r.Screenshot != "" {
		s := r.Screenshot
		rd.Screenshot = &s
	}
	return rd
}

func fromRecordDoc(rd recordDoc) Record {
	r := Record{
		PartnerName:   rd.PartnerName,
		PartnerID:     rd.PartnerID,
		TheirDiplomat: rd.TheirDiplomat,
		OurDiplomat:   rd.OurDiplomat,
	}
	if rd.Screenshot != nil {
		r.Screenshot = *rd.Screenshot
	}
	return r
}
