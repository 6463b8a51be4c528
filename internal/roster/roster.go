// Package roster holds the staff names that may place orders.
package roster

import (
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var builtin = []string{
	"oriana", "valentin", "miguel", "micaela", "mariana", "maru", "paula",
	"martin", "gustavo", "francisco", "polilla", "carla", "carled", "facu",
	"jose", "fede", "tomi",
}

type file struct {
	Users []string `yaml:"users"`
}

type Roster struct {
	names []string
	index map[string]bool
}

func New(names []string) *Roster {
	r := &Roster{index: make(map[string]bool)}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || r.index[n] {
			continue
		}
		r.index[n] = true
		r.names = append(r.names, n)
	}
	sort.Strings(r.names)
	return r
}

func Builtin() *Roster {
	return New(builtin)
}

// Load reads a yaml roster. An empty path or a file without users gives
// the built-in list.
func Load(path string) (*Roster, error) {
	if path == "" {
		return Builtin(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read roster")
	}
	return Parse(data)
}

func Parse(data []byte) (*Roster, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse roster")
	}
	if len(f.Users) == 0 {
		return Builtin(), nil
	}
	return New(f.Users), nil
}

func (r *Roster) Names() []string {
	return append([]string(nil), r.names...)
}

func (r *Roster) Contains(name string) bool {
	return r.index[strings.ToLower(strings.TrimSpace(name))]
}

// Handler serves GET /users.
func (r *Roster) Handler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": r.names})
}
