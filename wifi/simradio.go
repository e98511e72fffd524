package wifi

import (
	"context"
	"sync"
)

// SimRadio is an in-memory Radio for development hosts and tests. Networks
// become joinable by seeding them with AddNetwork; Connect succeeds only
// when the ssid and psk match a seeded network.
type SimRadio struct {
	mu        sync.Mutex
	mode      RadioMode
	networks  []Network
	passwords map[string]string
	joined    string
	stationIP string
	apIP      string
	apSSID    string
	linkUp    bool
}

var _ Radio = (*SimRadio)(nil)

func NewSimRadio() *SimRadio {
	return &SimRadio{passwords: make(map[string]string)}
}

// AddNetwork seeds a joinable network. An empty ssid simulates a hidden
// network in scan results.
func (r *SimRadio) AddNetwork(n Network, psk string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.networks = append(r.networks, n)
	if n.SSID != "" {
		r.passwords[n.SSID] = psk
	}
}

// DropLink simulates losing the station association.
func (r *SimRadio) DropLink() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.linkUp = false
	r.stationIP = ""
}

func (r *SimRadio) SetMode(mode RadioMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mode != ModeStation && mode != ModeMixed {
		r.joined = ""
		r.stationIP = ""
		r.linkUp = false
	}
	if mode != ModeAP && mode != ModeMixed {
		r.apIP = ""
		r.apSSID = ""
	}
	r.mode = mode
	return nil
}

func (r *SimRadio) Mode() RadioMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

func (r *SimRadio) Connect(ctx context.Context, ssid, psk string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	want, known := r.passwords[ssid]
	if !known || want != psk {
		return ErrAssociationFailed
	}
	r.joined = ssid
	r.stationIP = "192.168.1.42"
	r.linkUp = true
	return nil
}

func (r *SimRadio) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.linkUp
}

func (r *SimRadio) StationIP() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stationIP
}

func (r *SimRadio) RSSI() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.linkUp {
		return 0
	}
	for _, n := range r.networks {
		if n.SSID == r.joined {
			return n.RSSI
		}
	}
	return -50
}

func (r *SimRadio) StartAP(ssid, ip string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apSSID = ssid
	r.apIP = ip
	return nil
}

func (r *SimRadio) APIP() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apIP
}

func (r *SimRadio) APSSID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apSSID
}

func (r *SimRadio) Scan(ctx context.Context) ([]Network, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Network, len(r.networks))
	copy(out, r.networks)
	return out, nil
}
