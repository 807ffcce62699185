// Package pubchem is a rate-limited client for the PubChem PUG REST and
// PUG-View APIs.  PubChem enforces both a per-second and a per-minute cap on
// anonymous callers; the client holds a token bucket for each and waits on
// both before every request.
package pubchem

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/robotu/molkit/internal/config"
	"github.com/robotu/molkit/internal/infrastructure/logging"
	"github.com/robotu/molkit/internal/infrastructure/monitoring"
	"github.com/robotu/molkit/pkg/errors"
)

// defaultProperties is the property set fetched for every compound.
var defaultProperties = []string{
	"MolecularFormula",
	"MolecularWeight",
	"CanonicalSMILES",
	"IsomericSMILES",
	"InChI",
	"InChIKey",
	"IUPACName",
	"XLogP",
	"TPSA",
	"Charge",
	"HBondDonorCount",
	"HBondAcceptorCount",
	"Title",
}

// Properties is the flat property record PUG REST returns per compound.
// MolecularWeight arrives as a decimal string, not a number.
type Properties struct {
	CID                int64    `json:"CID"`
	MolecularFormula   string   `json:"MolecularFormula"`
	MolecularWeight    string   `json:"MolecularWeight"`
	CanonicalSMILES    string   `json:"CanonicalSMILES"`
	IsomericSMILES     string   `json:"IsomericSMILES"`
	InChI              string   `json:"InChI"`
	InChIKey           string   `json:"InChIKey"`
	IUPACName          string   `json:"IUPACName"`
	Title              string   `json:"Title"`
	XLogP              *float64 `json:"XLogP"`
	TPSA               *float64 `json:"TPSA"`
	Charge             int      `json:"Charge"`
	HBondDonorCount    int      `json:"HBondDonorCount"`
	HBondAcceptorCount int      `json:"HBondAcceptorCount"`
}

// Client talks to PubChem.  Safe for concurrent use; the shared limiters
// serialize callers so the worker pool cannot exceed the upstream caps.
type Client struct {
	baseURL string
	http    *http.Client
	perSec  *rate.Limiter
	perMin  *rate.Limiter
	logger  logging.Logger
	metrics *monitoring.IngestMetrics
}

// NewClient builds a PubChem client from configuration.  metrics may be nil.
func NewClient(cfg config.PubChemConfig, logger logging.Logger, metrics *monitoring.IngestMetrics) *Client {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	maxRPS := cfg.MaxRPS
	if maxRPS <= 0 {
		maxRPS = config.DefaultMaxRPS
	}
	maxRPM := cfg.MaxRPM
	if maxRPM <= 0 {
		maxRPM = config.DefaultMaxRPM
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultPubChemBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		perSec:  rate.NewLimiter(rate.Limit(maxRPS), maxRPS),
		perMin:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(maxRPM)), maxRPM),
		logger:  logger.Named("pubchem"),
		metrics: metrics,
	}
}

// FetchView returns the raw PUG-View document for a compound.  PUG-View
// carries the annotated sections (hazards, solubility, descriptions) the flat
// property API does not expose.
func (c *Client) FetchView(ctx context.Context, cid int64) (json.RawMessage, error) {
	if cid <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidCID, fmt.Sprintf("invalid cid %d", cid))
	}
	path := fmt.Sprintf("%s/rest/pug_view/data/compound/%d/JSON", c.baseURL, cid)
	body, err := c.get(ctx, "pug_view", path)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// FetchRecord3D returns the raw 3D conformer record for a compound.  Not
// every compound has one; absence surfaces as a not-found error.
func (c *Client) FetchRecord3D(ctx context.Context, cid int64) (json.RawMessage, error) {
	if cid <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidCID, fmt.Sprintf("invalid cid %d", cid))
	}
	path := fmt.Sprintf("%s/rest/pug/compound/cid/%d/record/JSON?record_type=3d", c.baseURL, cid)
	body, err := c.get(ctx, "record_3d", path)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// FetchProperties returns the standard property record for a compound.
func (c *Client) FetchProperties(ctx context.Context, cid int64) (*Properties, error) {
	if cid <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidCID, fmt.Sprintf("invalid cid %d", cid))
	}
	path := fmt.Sprintf("%s/rest/pug/compound/cid/%d/property/%s/JSON",
		c.baseURL, cid, strings.Join(defaultProperties, ","))
	body, err := c.get(ctx, "properties", path)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		PropertyTable struct {
			Properties []Properties `json:"Properties"`
		} `json:"PropertyTable"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIngestParseFailed, "property response")
	}
	if len(envelope.PropertyTable.Properties) == 0 {
		return nil, errors.New(errors.ErrCodeMoleculeNotFound,
			fmt.Sprintf("no properties returned for cid %d", cid))
	}
	return &envelope.PropertyTable.Properties[0], nil
}

// FetchSynonyms returns the synonym list for a compound, best known first.
func (c *Client) FetchSynonyms(ctx context.Context, cid int64) ([]string, error) {
	if cid <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidCID, fmt.Sprintf("invalid cid %d", cid))
	}
	path := fmt.Sprintf("%s/rest/pug/compound/cid/%d/synonyms/JSON", c.baseURL, cid)
	body, err := c.get(ctx, "synonyms", path)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		InformationList struct {
			Information []struct {
				Synonym []string `json:"Synonym"`
			} `json:"Information"`
		} `json:"InformationList"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIngestParseFailed, "synonym response")
	}
	if len(envelope.InformationList.Information) == 0 {
		return nil, nil
	}
	return envelope.InformationList.Information[0].Synonym, nil
}

// ResolveName maps a compound name to its CID.  When PubChem knows several
// CIDs for a name the first, its preferred record, wins.
func (c *Client) ResolveName(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New(errors.ErrCodeResolutionFailed, "empty compound name")
	}
	path := fmt.Sprintf("%s/rest/pug/compound/name/%s/cids/JSON", c.baseURL, url.PathEscape(name))
	body, err := c.get(ctx, "name_to_cid", path)
	if err != nil {
		if errors.IsNotFound(err) {
			return 0, errors.New(errors.ErrCodeResolutionFailed,
				fmt.Sprintf("no compound named %q", name))
		}
		return 0, err
	}

	var envelope struct {
		IdentifierList struct {
			CID []int64 `json:"CID"`
		} `json:"IdentifierList"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeIngestParseFailed, "cid response")
	}
	if len(envelope.IdentifierList.CID) == 0 {
		return 0, errors.New(errors.ErrCodeResolutionFailed,
			fmt.Sprintf("no compound named %q", name))
	}
	return envelope.IdentifierList.CID[0], nil
}

// get waits on both rate limiters, performs the request, and maps HTTP
// failures onto the error taxonomy.
func (c *Client) get(ctx context.Context, endpoint, rawURL string) ([]byte, error) {
	if err := c.perSec.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "rate limiter wait")
	}
	if err := c.perMin.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "build request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveAPICall(endpoint, "error")
		return nil, errors.Wrap(err, errors.ErrCodeIngestFetchFailed, "pubchem request").WithDetail(rawURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveAPICall(endpoint, "error")
		return nil, errors.Wrap(err, errors.ErrCodeIngestFetchFailed, "read pubchem response")
	}

	c.logger.Debug("pubchem request complete",
		logging.String("endpoint", endpoint),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusOK:
		c.metrics.ObserveAPICall(endpoint, "ok")
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		c.metrics.ObserveAPICall(endpoint, "not_found")
		return nil, errors.New(errors.ErrCodeMoleculeNotFound, "compound not found").WithDetail(rawURL)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		c.metrics.ObserveAPICall(endpoint, "throttled")
		return nil, errors.New(errors.ErrCodeTooManyRequests, "pubchem throttled the request").WithDetail(rawURL)
	default:
		c.metrics.ObserveAPICall(endpoint, "error")
		return nil, errors.New(errors.ErrCodeExternalService,
			fmt.Sprintf("pubchem returned status %d", resp.StatusCode)).WithDetail(rawURL)
	}
}
