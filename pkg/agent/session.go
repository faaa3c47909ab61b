package agent

import "vlm-search-agent/pkg/imaging"

// Session is the per-agent state. The loaded image and the evidence flag
// always belong to ActiveImageIdentity.
type Session struct {
	ActiveImageIdentity string
	LoadedImage         *imaging.Image
	EvidenceCacheValid  bool
}

// NeedsImage reports whether identity must be (re)loaded.
func (s *Session) NeedsImage(identity string) bool {
	return s.LoadedImage == nil || s.ActiveImageIdentity != identity
}

// Activate swaps in a freshly loaded image and invalidates the evidence cache.
func (s *Session) Activate(identity string, img *imaging.Image) {
	s.ActiveImageIdentity = identity
	s.LoadedImage = img
	s.EvidenceCacheValid = false
}

// Reset forgets the active image.
func (s *Session) Reset() {
	s.ActiveImageIdentity = ""
	s.LoadedImage = nil
	s.EvidenceCacheValid = false
}
