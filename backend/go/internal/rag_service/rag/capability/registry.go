// Package capability tracks which extraction back-ends are usable in this process.
//
// Availability is decided once at startup and then only read, so format dispatch can report a
// precise CapabilityUnavailable error instead of failing inside a parser.
package capability

import (
	"fmt"
	"sort"
	"sync"

	"github.com/unidoc/unioffice/v2/common/license"
)

// Name identifies an extraction capability.
type Name string

const (
	PDF              Name = "pdf"
	Office           Name = "office"
	Spreadsheet      Name = "spreadsheet"
	HTML             Name = "html"
	Markdown         Name = "markdown"
	JSON             Name = "json"
	YAML             Name = "yaml"
	CSV              Name = "csv"
	XML              Name = "xml"
	RTF              Name = "rtf"
	Text             Name = "text"
	CharsetDetection Name = "charset-detection"
	// OfficeSDK is the licensed unioffice back-end. Without it Office documents are read
	// by the built-in OOXML reader.
	OfficeSDK Name = "office-sdk"
)

// All lists every capability compiled into the binary.
var All = []Name{PDF, Office, OfficeSDK, Spreadsheet, HTML, Markdown, JSON, YAML, CSV, XML, RTF, Text, CharsetDetection}

// Capability is the externally visible status of one back-end.
type Capability struct {
	Name      Name   `json:"name"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Options configures NewRegistry.
type Options struct {
	// Disabled names capabilities switched off by configuration.
	Disabled []string
	// OfficeLicenseKey, when set, is registered with unioffice before any document is opened.
	OfficeLicenseKey string
}

// Registry holds per-capability availability.
type Registry struct {
	mu    sync.RWMutex
	state map[Name]Capability
}

// officeLicenser is swapped in tests.
var officeLicenser = license.SetMeteredKey

// NewRegistry checks every capability once.
func NewRegistry(opts Options) *Registry {
	r := &Registry{state: make(map[Name]Capability, len(All))}
	for _, n := range All {
		r.state[n] = Capability{Name: n, Available: true}
	}

	if opts.OfficeLicenseKey == "" {
		r.Disable(OfficeSDK, "no unioffice licence key configured; using the built-in OOXML reader")
	} else if err := officeLicenser(opts.OfficeLicenseKey); err != nil {
		r.Disable(OfficeSDK, fmt.Sprintf("office licence rejected: %v; using the built-in OOXML reader", err))
	}

	for _, d := range opts.Disabled {
		n := Name(d)
		if _, ok := r.state[n]; ok {
			r.Disable(n, "disabled by configuration")
		}
	}
	return r
}

// Available reports whether n can be used. Unknown names are unavailable.
func (r *Registry) Available(n Name) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[n].Available
}

// Get returns the status of n.
func (r *Registry) Get(n Name) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.state[n]
	return c, ok
}

// Disable marks n unavailable.
func (r *Registry) Disable(n Name, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[n] = Capability{Name: n, Reason: reason}
}

// Status returns all capabilities sorted by name.
func (r *Registry) Status() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Capability, 0, len(r.state))
	for _, c := range r.state {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
