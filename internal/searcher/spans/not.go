package spans

// NotSpans yields the spans of include that do not overlap any span of
// exclude in the same document. Two spans overlap when
// exclude.Start < include.End && exclude.End > include.Start.
type NotSpans struct {
	include     Spans
	exclude     Spans
	moreInclude bool
	moreExclude bool
}

// NewNotSpans primes the exclude iterator; include is first advanced by the
// first call to Next or SkipTo.
func NewNotSpans(include, exclude Spans) *NotSpans {
	return &NotSpans{
		include:     include,
		exclude:     exclude,
		moreInclude: true,
		moreExclude: exclude.Next(),
	}
}

func (n *NotSpans) Next() bool {
	if n.moreInclude {
		n.moreInclude = n.include.Next()
	}
	for n.moreInclude && n.moreExclude {
		if n.include.Doc() > n.exclude.Doc() {
			n.moreExclude = n.exclude.SkipTo(n.include.Doc())
		}
		n.skipEndedExcludes()
		if n.accepted() {
			break
		}
		n.moreInclude = n.include.Next()
	}
	return n.moreInclude
}

func (n *NotSpans) SkipTo(target int) bool {
	if n.moreInclude {
		n.moreInclude = n.include.SkipTo(target)
	}
	if !n.moreInclude {
		return false
	}
	if n.moreExclude && n.include.Doc() > n.exclude.Doc() {
		n.moreExclude = n.exclude.SkipTo(n.include.Doc())
	}
	n.skipEndedExcludes()
	if n.accepted() {
		return true
	}
	return n.Next()
}

// skipEndedExcludes drops exclude spans of the current document that end at
// or before the include span starts. Include spans arrive by increasing
// start, so those can never overlap a later include span either.
func (n *NotSpans) skipEndedExcludes() {
	for n.moreExclude &&
		n.include.Doc() == n.exclude.Doc() &&
		n.exclude.End() <= n.include.Start() {
		n.moreExclude = n.exclude.Next()
	}
}

func (n *NotSpans) accepted() bool {
	return !n.moreExclude ||
		n.include.Doc() != n.exclude.Doc() ||
		n.include.End() <= n.exclude.Start()
}

func (n *NotSpans) Doc() int   { return n.include.Doc() }
func (n *NotSpans) Start() int { return n.include.Start() }
func (n *NotSpans) End() int   { return n.include.End() }
