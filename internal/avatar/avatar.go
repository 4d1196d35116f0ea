// internal/avatar/avatar.go
package avatar

import (
	"math/rand"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// fallbackFiles is served when the avatar directory cannot be read, so a
// fresh checkout without assets still hands out something displayable.
var fallbackFiles = []string{
	"avatar1.png",
	"avatar2.png",
	"avatar3.png",
	"avatar4.png",
	"avatar5.png",
}

// Picker hands out random avatar file names from a static image directory.
type Picker struct {
	mu    sync.Mutex
	files []string
}

// Load scans dir for image files and returns a picker over them. A
// missing or empty directory falls back to a built-in default list.
func Load(dir string, logger *logrus.Logger) *Picker {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warnf("avatar directory %s not readable, using defaults: %v", dir, err)
		return &Picker{files: fallbackFiles}
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(name[strings.LastIndexByte(name, '.')+1:])
		switch ext {
		case "png", "jpg", "jpeg", "gif":
			files = append(files, name)
		}
	}
	if len(files) == 0 {
		logger.Warnf("no image files in avatar directory %s, using defaults", dir)
		return &Picker{files: fallbackFiles}
	}
	logger.Infof("loaded %d avatars from %s", len(files), dir)
	return &Picker{files: files}
}

// Random returns a random avatar file name.
func (p *Picker) Random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.files[rand.Intn(len(p.files))]
}
