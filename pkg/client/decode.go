package client

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
)

const (
	nsAtom     = "http://www.w3.org/2005/Atom"
	nsMetadata = "http://schemas.microsoft.com/ado/2007/08/dataservices/metadata"
	nsXML      = "http://www.w3.org/XML/1998/namespace"

	contentTypeAtom = "application/atom+xml"
	contentTypeXML  = "application/xml"
	contentTypeJSON = "application/json"

	maxEntityBytes = 1 << 20
)

// properties holds the primitive properties of one entity keyed by name.
// Null properties are present with an empty value.
type properties struct {
	entity string
	values map[string]string
}

// String returns the named property or fails with ErrProtocol when the
// server did not send it.
func (p properties) String(key string) (string, error) {
	v, ok := p.values[key]
	if !ok {
		return "", protocolError("%s: property %q missing from response", p.entity, key)
	}
	return v, nil
}

// Bool returns the named property parsed as a boolean.
func (p properties) Bool(key string) (bool, error) {
	v, err := p.String(key)
	if err != nil {
		return false, err
	}
	return parseBool(v), nil
}

// ── Atom / XML ──────────────────────────────────────────────────────────────

type atomField struct {
	XMLName xml.Name
	Null    string `xml:"http://schemas.microsoft.com/ado/2007/08/dataservices/metadata null,attr"`
	Value   string `xml:",chardata"`
}

type atomProperties struct {
	Fields []atomField `xml:",any"`
}

type atomContent struct {
	Properties *atomProperties `xml:"http://schemas.microsoft.com/ado/2007/08/dataservices/metadata properties"`
}

// atomEntry covers both regular entries (properties inside <content>) and
// media link entries (properties as a sibling of <content>).
type atomEntry struct {
	Content    atomContent     `xml:"http://www.w3.org/2005/Atom content"`
	Properties *atomProperties `xml:"http://schemas.microsoft.com/ado/2007/08/dataservices/metadata properties"`
}

func (e *atomEntry) properties(entity string) (properties, error) {
	src := e.Content.Properties
	if src == nil {
		src = e.Properties
	}
	if src == nil {
		return properties{}, protocolError("%s: entry carries no m:properties", entity)
	}
	return src.properties(entity), nil
}

func (a *atomProperties) properties(entity string) properties {
	p := properties{entity: entity, values: make(map[string]string, len(a.Fields))}
	for _, f := range a.Fields {
		if parseBool(f.Null) {
			p.values[f.XMLName.Local] = ""
			continue
		}
		p.values[f.XMLName.Local] = f.Value
	}
	return p
}

// decodeAtomEntity reads a single <entry>. Function imports returning a
// complex type answer with a bare element whose children are the
// properties; that form is accepted as well.
func decodeAtomEntity(r io.Reader, entity string) (properties, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return properties{}, protocolError("%s: empty response body", entity)
			}
			return properties{}, protocolError("%s: decode XML: %v", entity, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch {
		case se.Name.Space == nsAtom && se.Name.Local == "entry":
			var e atomEntry
			if err := dec.DecodeElement(&e, &se); err != nil {
				return properties{}, protocolError("%s: decode entry: %v", entity, err)
			}
			return e.properties(entity)
		case se.Name.Space == nsAtom && se.Name.Local == "feed":
			return properties{}, protocolError("%s: expected a single entry, got a feed", entity)
		case se.Name.Space == nsMetadata && se.Name.Local == "error":
			return properties{}, protocolError("%s: server returned an error document", entity)
		default:
			var a atomProperties
			if err := dec.DecodeElement(&a, &se); err != nil {
				return properties{}, protocolError("%s: decode %s: %v", entity, se.Name.Local, err)
			}
			return a.properties(entity), nil
		}
	}
}

// ── JSON (OData v2 verbose) ─────────────────────────────────────────────────

type jsonEnvelope struct {
	D json.RawMessage `json:"d"`
}

type jsonFeed struct {
	Results []map[string]any `json:"results"`
	Next    string           `json:"__next"`
}

func decodeJSONEntity(r io.Reader, entity string) (properties, error) {
	var env jsonEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return properties{}, protocolError("%s: decode JSON: %v", entity, err)
	}
	if len(env.D) == 0 {
		return properties{}, protocolError("%s: JSON response has no \"d\" member", entity)
	}
	obj, err := decodeJSONObject(env.D)
	if err != nil {
		return properties{}, protocolError("%s: decode JSON entity: %v", entity, err)
	}
	// Function imports may wrap the returned complex type in its own name.
	if len(obj) == 1 {
		for _, v := range obj {
			if inner, ok := v.(map[string]any); ok {
				obj = inner
			}
		}
	}
	return jsonProperties(obj, entity), nil
}

// decodeJSONFeed accepts both {"d":{"results":[..],"__next":".."}} and {"d":[..]}.
func decodeJSONFeed(r io.Reader, entity string) ([]properties, string, error) {
	var env jsonEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, "", protocolError("%s: decode JSON: %v", entity, err)
	}
	raw := bytes.TrimSpace(env.D)
	if len(raw) == 0 {
		return nil, "", protocolError("%s: JSON response has no \"d\" member", entity)
	}

	var feed jsonFeed
	if raw[0] == '[' {
		if err := unmarshalNumbers(raw, &feed.Results); err != nil {
			return nil, "", protocolError("%s: decode JSON feed: %v", entity, err)
		}
	} else if err := unmarshalNumbers(raw, &feed); err != nil {
		return nil, "", protocolError("%s: decode JSON feed: %v", entity, err)
	}

	out := make([]properties, len(feed.Results))
	for i, obj := range feed.Results {
		out[i] = jsonProperties(obj, entity)
	}
	return out, feed.Next, nil
}

func decodeJSONObject(raw json.RawMessage) (map[string]any, error) {
	var obj map[string]any
	if err := unmarshalNumbers(raw, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func unmarshalNumbers(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// jsonProperties keeps scalar members; __metadata and deferred navigation
// objects are dropped.
func jsonProperties(obj map[string]any, entity string) properties {
	p := properties{entity: entity, values: make(map[string]string, len(obj))}
	for k, v := range obj {
		switch x := v.(type) {
		case nil:
			p.values[k] = ""
		case string:
			p.values[k] = x
		case bool:
			p.values[k] = strconv.FormatBool(x)
		case json.Number:
			p.values[k] = x.String()
		}
	}
	return p
}

// ── dispatch ───────────────────────────────────────────────────────────────

func mediaType(resp *http.Response) string {
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

// decodeEntity decodes a single-entity response according to its content
// type. Atom is assumed when the server sends no usable Content-Type.
func decodeEntity(resp *http.Response, entity string) (properties, error) {
	body := io.LimitReader(resp.Body, maxEntityBytes)
	switch mediaType(resp) {
	case contentTypeJSON:
		return decodeJSONEntity(body, entity)
	default:
		return decodeAtomEntity(body, entity)
	}
}
