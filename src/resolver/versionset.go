package resolver

// VersionSet maps branch id -> artifact id -> chronologically ordered invocations.
// Iteration order is deterministic: branches by index, artifacts by first appearance.
type VersionSet struct {
	order    []string
	branches map[string]*branchArtifacts
}

type branchArtifacts struct {
	order    []string
	versions map[string][]Invocation
}

func newVersionSet() *VersionSet {
	return &VersionSet{branches: make(map[string]*branchArtifacts)}
}

// add stores a non-empty version list; empty lists are dropped so keys always have content.
func (s *VersionSet) add(branchID, artifactID string, versions []Invocation) {
	if len(versions) == 0 {
		return
	}
	ba, ok := s.branches[branchID]
	if !ok {
		ba = &branchArtifacts{versions: make(map[string][]Invocation)}
		s.branches[branchID] = ba
		s.order = append(s.order, branchID)
	}
	if _, ok := ba.versions[artifactID]; !ok {
		ba.order = append(ba.order, artifactID)
	}
	ba.versions[artifactID] = versions
}

// Branches returns the ids of branches that have at least one artifact version.
func (s *VersionSet) Branches() []string {
	return append([]string(nil), s.order...)
}

// ArtifactIDs returns the artifact ids present on a branch.
func (s *VersionSet) ArtifactIDs(branchID string) []string {
	ba, ok := s.branches[branchID]
	if !ok {
		return nil
	}
	return append([]string(nil), ba.order...)
}

// Versions returns the kept invocations for a branch and artifact.
func (s *VersionSet) Versions(branchID, artifactID string) []Invocation {
	ba, ok := s.branches[branchID]
	if !ok {
		return nil
	}
	return ba.versions[artifactID]
}

// Len is the total number of invocations across all branches.
func (s *VersionSet) Len() int {
	n := 0
	for _, ba := range s.branches {
		for _, v := range ba.versions {
			n += len(v)
		}
	}
	return n
}

// Empty reports whether the set holds no invocations.
func (s *VersionSet) Empty() bool {
	return len(s.order) == 0
}

// Each calls fn for every branch/artifact pair in iteration order.
func (s *VersionSet) Each(fn func(branchID, artifactID string, versions []Invocation)) {
	for _, b := range s.order {
		ba := s.branches[b]
		for _, a := range ba.order {
			fn(b, a, ba.versions[a])
		}
	}
}
