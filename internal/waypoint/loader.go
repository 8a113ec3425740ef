package waypoint

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sparkfun-avc/control/internal/geo"
	"github.com/sparkfun-avc/control/internal/security"
)

// Loader reads a waypoint file from disk and converts it to planar points
// centered on origin. KML/KMZ parsing is explicitly out of scope; a
// collaborator that needs it can satisfy this same interface.
type Loader interface {
	Load(path string, origin geo.Origin) ([]Point, error)
}

// ListLoader reads a newline-delimited "lat,long" text file, rejecting any
// path that escapes dir.
type ListLoader struct {
	dir string
}

// NewFileLoader builds a ListLoader restricted to files under dir.
func NewFileLoader(dir string) *ListLoader {
	return &ListLoader{dir: dir}
}

// Load reads path (resolved relative to the loader's directory): one
// "lat,long" pair per line, blank lines and "#"-prefixed comments ignored.
func (l *ListLoader) Load(path string, origin geo.Origin) ([]Point, error) {
	full := filepath.Join(l.dir, path)
	if err := security.ValidatePathWithinDirectory(full, l.dir); err != nil {
		return nil, fmt.Errorf("waypoint: %w", err)
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("waypoint: open list: %w", err)
	}
	defer f.Close()

	var points []Point
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("waypoint: malformed line %q", line)
		}
		latD, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("waypoint: latitude %q: %w", parts[0], err)
		}
		longD, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("waypoint: longitude %q: %w", parts[1], err)
		}
		points = append(points, Point{
			X: origin.LongitudeToMOffset(longD),
			Y: origin.LatitudeToMOffset(latD),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("waypoint: scan list: %w", err)
	}
	return points, nil
}

var _ Loader = (*ListLoader)(nil)
