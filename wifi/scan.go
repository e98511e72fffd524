package wifi

import "sort"

// FilterNetworks orders raw scan results for presentation: hidden networks
// are dropped, duplicates collapse to the strongest signal, and the result
// is sorted by descending rssi.
func FilterNetworks(raw []Network) []Network {
	best := make(map[string]Network, len(raw))
	for _, n := range raw {
		if n.SSID == "" {
			continue
		}
		if seen, ok := best[n.SSID]; !ok || n.RSSI > seen.RSSI {
			best[n.SSID] = n
		}
	}
	out := make([]Network, 0, len(best))
	for _, n := range best {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RSSI != out[j].RSSI {
			return out[i].RSSI > out[j].RSSI
		}
		return out[i].SSID < out[j].SSID
	})
	return out
}
