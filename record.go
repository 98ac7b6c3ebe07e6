package kestrel

import (
	"bytes"
	"encoding/gob"
)

// DocumentHeader names the ordered column names a document record's
// fields correspond to; index i names AttributeID(i).
type DocumentHeader []string

// EncodeFields serializes an ordered list of field values — a document
// record's column values, or a DocumentHeader's column names — for
// storage under TableDocuments or the headers meta key.
func EncodeFields(fields []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(fields); err != nil {
		return nil, DecodeError("encode fields", err)
	}
	return buf.Bytes(), nil
}

// DecodeFields is the inverse of EncodeFields.
func DecodeFields(raw []byte) ([]string, error) {
	var fields []string
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&fields); err != nil {
		return nil, DecodeError("decode fields", err)
	}
	return fields, nil
}
