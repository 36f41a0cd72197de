package product

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
)

const fileURLPrefix = "file:"

// skuSuffixes are variant suffixes stripped before a denylist lookup, longest first so "F3RN" wins over "RN".
var skuSuffixes = func() []string {
	s := []string{"F2", "F3", "F3RN", "F4", "F5", "HR", "MO", "RN", "S"}
	sort.SliceStable(s, func(i, j int) bool { return len(s[i]) > len(s[j]) })
	return s
}()

// Denylist is the set of SKUs that must never report capacity or be synced.
type Denylist struct {
	skus   map[string]struct{}
	logger *slog.Logger
}

func NewDenylist(logger *slog.Logger, skus ...string) *Denylist {
	d := &Denylist{skus: make(map[string]struct{}, len(skus)), logger: logger.WithGroup("denylist")}
	for _, s := range skus {
		if s = strings.TrimSpace(s); s != "" {
			d.skus[s] = struct{}{}
		}
	}
	return d
}

// LoadDenylist reads one SKU per line from location, which is an absolute path optionally prefixed with "file:". Blank lines are skipped. An empty location yields an empty denylist.
func LoadDenylist(location string, logger *slog.Logger) (*Denylist, error) {
	if location == "" {
		logger.Warn("denylist: no denylist present in configuration")
		return NewDenylist(logger), nil
	}
	path := strings.TrimPrefix(location, fileURLPrefix)
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("denylist location %q must be file: or an absolute path", location)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading product denylist: %w", err)
	}
	defer f.Close()

	var skus []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		skus = append(skus, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("loading product denylist: %w", err)
	}
	logger.Debug("denylist: loaded", "location", location, "skus", len(skus))
	return NewDenylist(logger, skus...), nil
}

// Denied reports whether sku, or sku with its variant suffix removed, is denylisted.
func (d *Denylist) Denied(sku string) bool {
	if sku == "" {
		return false
	}
	_, exact := d.skus[sku]
	_, base := d.skus[removeSuffix(sku)]
	if exact || base {
		d.logger.Debug("denylist: sku is denylisted", "sku", sku)
		return true
	}
	return false
}

// Len returns the number of denylisted SKUs.
func (d *Denylist) Len() int {
	return len(d.skus)
}

func removeSuffix(sku string) string {
	for _, s := range skuSuffixes {
		if strings.HasSuffix(sku, s) {
			return strings.TrimSuffix(sku, s)
		}
	}
	return sku
}
