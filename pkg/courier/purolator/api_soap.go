package purolator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"text/template"
	"time"
)

// SOAPAPIClient is the production implementation of APIClient using SOAP.
type SOAPAPIClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// SOAPAPIClientConfig holds configuration for the SOAP client.
type SOAPAPIClientConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// NewSOAPAPIClient creates a new SOAP-based API client for production use.
func NewSOAPAPIClient(cfg SOAPAPIClientConfig) *SOAPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &SOAPAPIClient{
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetTracking retrieves tracking info from the Purolator TrackingService.
func (c *SOAPAPIClient) GetTracking(ctx context.Context, trackingPIN string) (*TrackingResponse, error) {
	soapBody, err := c.buildTrackingRequest(trackingPIN)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	endpoint := c.baseURL + "/PWS/V1/Tracking/TrackingService.asmx"
	resp, err := c.doSOAPRequest(ctx, endpoint, "TrackPackagesByPin", soapBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseSOAPError(resp)
	}

	return c.parseTrackingResponse(resp.Body, trackingPIN)
}

// ============================================================================
// SOAP Request Helpers
// ============================================================================

func (c *SOAPAPIClient) doSOAPRequest(ctx context.Context, endpoint, action string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Purolator uses Basic Auth
	auth := base64.StdEncoding.EncodeToString([]byte(c.username + ":" + c.password))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", fmt.Sprintf("http://purolator.com/pws/service/v1/%s", action))

	return c.httpClient.Do(req)
}

const soapEnvelopeTemplate = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:v1="http://purolator.com/pws/datatypes/v1">
  <soap:Header>
    <v1:RequestContext>
      <v1:Version>1.2</v1:Version>
      <v1:Language>en</v1:Language>
      <v1:GroupID>xxx</v1:GroupID>
      <v1:RequestReference>{{.RequestRef}}</v1:RequestReference>
    </v1:RequestContext>
  </soap:Header>
  <soap:Body>
    {{.Body}}
  </soap:Body>
</soap:Envelope>`

func (c *SOAPAPIClient) buildTrackingRequest(trackingPIN string) ([]byte, error) {
	bodyTmpl := `<v1:TrackPackagesByPinRequest>
      <v1:PINs>
        <v1:PIN>
          <v1:Value>{{.TrackingPIN}}</v1:Value>
        </v1:PIN>
      </v1:PINs>
    </v1:TrackPackagesByPinRequest>`

	data := struct {
		TrackingPIN string
	}{TrackingPIN: trackingPIN}

	return c.buildEnvelope(bodyTmpl, data)
}

func (c *SOAPAPIClient) buildEnvelope(bodyTemplate string, data interface{}) ([]byte, error) {
	bodyTmpl, err := template.New("body").Parse(bodyTemplate)
	if err != nil {
		return nil, err
	}

	var bodyBuf bytes.Buffer
	if err := bodyTmpl.Execute(&bodyBuf, data); err != nil {
		return nil, err
	}

	envTmpl, err := template.New("envelope").Parse(soapEnvelopeTemplate)
	if err != nil {
		return nil, err
	}

	envData := struct {
		RequestRef string
		Body       string
	}{
		RequestRef: fmt.Sprintf("req-%d", time.Now().UnixNano()),
		Body:       bodyBuf.String(),
	}

	var envBuf bytes.Buffer
	if err := envTmpl.Execute(&envBuf, envData); err != nil {
		return nil, err
	}

	return envBuf.Bytes(), nil
}

// ============================================================================
// SOAP Response Parsers - XML Types
// ============================================================================

// soapEnvelope represents a SOAP envelope response
type soapEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    soapBody `xml:"Body"`
}

type soapBody struct {
	Fault                  *soapFault                  `xml:"Fault,omitempty"`
	TrackPackagesByPinResp *trackPackagesByPinResponse `xml:"TrackPackagesByPinResponse,omitempty"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type trackPackagesByPinResponse struct {
	ResponseInformation     responseInfo     `xml:"ResponseInformation"`
	TrackingInformationList trackingInfoList `xml:"TrackingInformationList"`
}

type responseInfo struct {
	Errors []responseError `xml:"Errors>Error"`
}

type responseError struct {
	Code        string `xml:"Code"`
	Description string `xml:"Description"`
}

type trackingInfoList struct {
	TrackingInformation []trackingInfo `xml:"TrackingInformation"`
}

type trackingInfo struct {
	PIN   soapPIN   `xml:"PIN"`
	Scans soapScans `xml:"Scans"`
}

type soapPIN struct {
	Value string `xml:"Value"`
}

type soapScans struct {
	Scan []soapScan `xml:"Scan"`
}

type soapScan struct {
	ScanType    string    `xml:"ScanType"`
	ScanDate    string    `xml:"ScanDate"`
	ScanTime    string    `xml:"ScanTime"`
	Description string    `xml:"Description"`
	Depot       soapDepot `xml:"Depot"`
}

type soapDepot struct {
	Name    string      `xml:"Name"`
	Address soapAddress `xml:"Address"`
}

type soapAddress struct {
	City       string `xml:"City"`
	Province   string `xml:"Province"`
	Country    string `xml:"Country"`
	PostalCode string `xml:"PostalCode"`
}

// ============================================================================
// SOAP Response Parsing Functions
// ============================================================================

func (c *SOAPAPIClient) parseSOAPError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var env soapEnvelope
	if err := xml.Unmarshal(body, &env); err == nil && env.Body.Fault != nil {
		return &APIError{
			Code:        env.Body.Fault.Code,
			Description: env.Body.Fault.String,
		}
	}

	return &APIError{
		Code:        fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Description: string(body),
	}
}

func (c *SOAPAPIClient) parseTrackingResponse(body io.Reader, trackingPIN string) (*TrackingResponse, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	var env soapEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if env.Body.Fault != nil {
		return nil, &APIError{
			Code:        env.Body.Fault.Code,
			Description: env.Body.Fault.String,
		}
	}

	if env.Body.TrackPackagesByPinResp == nil {
		return nil, &APIError{
			Code:        "PARSE_ERROR",
			Description: "No tracking information in response",
		}
	}

	resp := env.Body.TrackPackagesByPinResp

	if len(resp.ResponseInformation.Errors) > 0 {
		e := resp.ResponseInformation.Errors[0]
		return nil, &APIError{
			Code:        e.Code,
			Description: e.Description,
		}
	}

	result := &TrackingResponse{TrackingPIN: trackingPIN}
	for _, info := range resp.TrackingInformationList.TrackingInformation {
		if info.PIN.Value != "" && info.PIN.Value != trackingPIN {
			continue
		}
		for _, scan := range info.Scans.Scan {
			location := scan.Depot.Address.City
			if scan.Depot.Address.Province != "" {
				location += ", " + scan.Depot.Address.Province
			}
			result.Scans = append(result.Scans, Scan{
				ScanType:    scan.ScanType,
				Timestamp:   scan.ScanDate + "T" + scan.ScanTime,
				Description: scan.Description,
				Location:    location,
			})
		}
	}

	return result, nil
}

var _ APIClient = (*SOAPAPIClient)(nil)
