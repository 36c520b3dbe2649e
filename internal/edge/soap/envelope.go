// Package soap is the SOAP 1.1 facade of the edge service.
package soap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/vyrodovalexey/avarelay/internal/edge"
)

// Namespaces.
const (
	EnvelopeNamespace = "http://schemas.xmlsoap.org/soap/envelope/"
	UserNamespace     = "http://netflix.oss/user"
)

// Fault codes.
const (
	FaultClient = "soap:Client"
	FaultServer = "soap:Server"
)

var (
	errNoBody           = errors.New("SOAP envelope has no Body")
	errEmptyBody        = errors.New("SOAP Body is empty")
	errUnknownOperation = errors.New("unknown operation")
)

// GetUserStatusRequest is the request payload.
type GetUserStatusRequest struct {
	XMLName xml.Name `xml:"http://netflix.oss/user GetUserStatusRequest"`
	UserID  string   `xml:"userId"`
}

// GetUserStatusResponse is the response payload.
type GetUserStatusResponse struct {
	XMLName        xml.Name `xml:"http://netflix.oss/user GetUserStatusResponse"`
	UserID         string   `xml:"userId"`
	Status         string   `xml:"status"`
	ServedBy       string   `xml:"servedBy"`
	MTLSVerified   bool     `xml:"mtlsVerified"`
	ClientCN       string   `xml:"clientCN"`
	BackendVersion string   `xml:"backendVersion"`
}

// NewGetUserStatusResponse renders a projected user status.
func NewGetUserStatusResponse(s edge.UserStatus) *GetUserStatusResponse {
	return &GetUserStatusResponse{
		UserID:         s.ID,
		Status:         s.Status,
		ServedBy:       s.ServedBy,
		MTLSVerified:   s.MTLSVerified,
		ClientCN:       s.ClientCN,
		BackendVersion: s.BackendVersion,
	}
}

// Fault is a SOAP 1.1 fault.
type Fault struct {
	XMLName xml.Name `xml:"soap:Fault"`
	Code    string   `xml:"faultcode"`
	String  string   `xml:"faultstring"`
}

type responseEnvelope struct {
	XMLName   xml.Name     `xml:"soap:Envelope"`
	XmlnsSoap string       `xml:"xmlns:soap,attr"`
	Header    struct{}     `xml:"soap:Header"`
	Body      responseBody `xml:"soap:Body"`
}

type responseBody struct {
	Content any `xml:",any"`
}

// decodeRequest reads an envelope and returns the GetUserStatusRequest in
// its body. One decoder walks the whole document so prefixes declared on
// the Envelope stay in scope for the body.
func decodeRequest(r io.Reader) (*GetUserStatusRequest, error) {
	dec := xml.NewDecoder(r)

	root, err := nextStart(dec)
	if err != nil {
		return nil, fmt.Errorf("malformed SOAP envelope: %w", err)
	}
	if root.Name.Space != EnvelopeNamespace || root.Name.Local != "Envelope" {
		return nil, fmt.Errorf("malformed SOAP envelope: unexpected root {%s}%s", root.Name.Space, root.Name.Local)
	}

	for {
		el, err := nextStart(dec)
		if errors.Is(err, io.EOF) || errors.Is(err, errEndElement) {
			return nil, errNoBody
		}
		if err != nil {
			return nil, fmt.Errorf("malformed SOAP envelope: %w", err)
		}
		if el.Name.Space == EnvelopeNamespace && el.Name.Local == "Body" {
			break
		}
		if err := dec.Skip(); err != nil {
			return nil, fmt.Errorf("malformed SOAP envelope: %w", err)
		}
	}

	op, err := nextStart(dec)
	if errors.Is(err, io.EOF) || errors.Is(err, errEndElement) {
		return nil, errEmptyBody
	}
	if err != nil {
		return nil, fmt.Errorf("malformed SOAP body: %w", err)
	}
	if op.Name.Space != UserNamespace || op.Name.Local != "GetUserStatusRequest" {
		return nil, fmt.Errorf("%w: {%s}%s", errUnknownOperation, op.Name.Space, op.Name.Local)
	}

	var req GetUserStatusRequest
	if err := dec.DecodeElement(&req, &op); err != nil {
		return nil, fmt.Errorf("malformed GetUserStatusRequest: %w", err)
	}
	return &req, nil
}

var errEndElement = errors.New("element closed")

// nextStart returns the next start element, or errEndElement when the
// enclosing element closes first.
func nextStart(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.EndElement:
			return xml.StartElement{}, errEndElement
		}
	}
}

// encodeEnvelope wraps content in a SOAP envelope.
func encodeEnvelope(content any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	env := responseEnvelope{
		XmlnsSoap: EnvelopeNamespace,
		Body:      responseBody{Content: content},
	}
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("failed to encode SOAP envelope: %w", err)
	}
	return buf.Bytes(), nil
}
