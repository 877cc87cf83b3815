package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	ap "github.com/admarple/apothecary"
	"go.uber.org/zap"
)

// Well-known content keys.
const (
	HeaderNavID = "header_nav"
	FooterNavID = "footer_nav"
	CoupleID    = "0"
)

//==============================================================================
// Site Service
//==============================================================================

// Site is used to read page content and record RSVPs.
type Site struct {
	Navs     ap.Table[NavGroup]
	Sections ap.Table[SectionGroup]
	Couples  ap.Table[Couple]
	Guests   ap.Table[Guest]
	RSVPs    ap.Table[RSVP]
	Logger   *zap.Logger
}

// NewSite returns a Site on the store. The registry supplies the (possibly prefixed) table
// names; a registry missing one of the site schemas is an error.
func NewSite(store ap.Store, registry ap.Registry, logger *zap.Logger) (Site, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var missing []string
	schema := func(s ap.Schema) ap.Schema {
		found, ok := registry.Lookup(s.EntityType)
		if !ok {
			missing = append(missing, s.EntityType)
			return s
		}
		return found
	}
	site := Site{
		Navs:     ap.NewTable[NavGroup](store, schema(NavSchema), logger),
		Sections: ap.NewTable[SectionGroup](store, schema(SectionSchema), logger),
		Couples:  ap.NewTable[Couple](store, schema(CoupleSchema), logger),
		Guests:   ap.NewTable[Guest](store, schema(GuestSchema), logger),
		RSVPs:    ap.NewTable[RSVP](store, schema(RSVPSchema), logger),
		Logger:   logger,
	}
	if len(missing) > 0 {
		return site, fmt.Errorf("%w: not registered: %s", ap.ErrInvalidSchema, strings.Join(missing, ", "))
	}
	return site, nil
}

// NewMemSite returns a Site backed by an in-memory store with all of its tables created.
func NewMemSite(ctx context.Context, logger *zap.Logger) (Site, error) {
	store := ap.NewMemStore()
	registry := Registry()
	if err := registry.Setup(ctx, store, ap.SetupOptions{Logger: logger}); err != nil {
		return Site{}, err
	}
	return NewSite(store, registry, logger)
}

// WithPageSize returns a copy of the Site whose scans evaluate at most n items per request.
func (s Site) WithPageSize(n int) Site {
	s.Navs.PageSize = n
	s.Sections.PageSize = n
	s.Couples.PageSize = n
	s.Guests.PageSize = n
	s.RSVPs.PageSize = n
	return s
}

//------------------------------------------------------------------------------
// Page Content
//------------------------------------------------------------------------------

// PageContext is the shared content of every page. It is built per request and handed to the
// renderer.
type PageContext struct {
	Title      string `json:"title"`
	Her        string `json:"her"`
	Him        string `json:"him"`
	HeaderNavs []Nav  `json:"headerNavs"`
	FooterNavs []Nav  `json:"footerNavs"`
	Active     string `json:"active"`
}

// PageContext reads the header and footer links and the couple. Missing link groups render as
// empty; a missing couple is an error.
func (s Site) PageContext(ctx context.Context, active string) (PageContext, error) {
	couple, err := s.Couples.Get(ctx, CoupleID)
	if err != nil {
		return PageContext{}, fmt.Errorf("error reading page context: %w", err)
	}
	header, err := s.navs(ctx, HeaderNavID)
	if err != nil {
		return PageContext{}, err
	}
	footer, err := s.navs(ctx, FooterNavID)
	if err != nil {
		return PageContext{}, err
	}
	return PageContext{
		Title:      couple.Title(),
		Her:        couple.Her,
		Him:        couple.Him,
		HeaderNavs: header,
		FooterNavs: footer,
		Active:     active,
	}, nil
}

func (s Site) navs(ctx context.Context, id string) ([]Nav, error) {
	g, err := s.Navs.Get(ctx, id)
	if errors.Is(err, ap.ErrNotFound) {
		s.Logger.Debug("nav group not found", zap.String("navGroupId", id))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading page context: %w", err)
	}
	return g.Navs, nil
}

// SectionGroup reads the sections of one page.
func (s Site) SectionGroup(ctx context.Context, id string) (SectionGroup, error) {
	return s.Sections.Get(ctx, id)
}

//------------------------------------------------------------------------------
// RSVPs
//------------------------------------------------------------------------------

// SubmitRSVP stores a new RSVP built from the form, replacing any earlier response under the same
// name, and records one Guest per named guest. Guests from the earlier response are removed.
func (s Site) SubmitRSVP(ctx context.Context, form RSVPForm) (RSVP, []string, error) {
	r := NewRSVP(form)
	problems := r.Validate()
	if len(problems) > 0 {
		return r, problems, fmt.Errorf("error creating %s %q: invalid field(s): %s",
			s.RSVPs.GetEntityType(), r.RSVPID, strings.Join(problems, ", "))
	}
	previous, err := s.ListGuests(ctx, r.RSVPID)
	if err != nil {
		return r, problems, fmt.Errorf("error creating %s %q: %w", s.RSVPs.GetEntityType(), r.RSVPID, err)
	}
	if err = s.RSVPs.Put(ctx, r); err != nil {
		return r, problems, fmt.Errorf("error creating %s %q: %w", s.RSVPs.GetEntityType(), r.RSVPID, err)
	}
	for _, g := range previous {
		if err = s.Guests.Delete(ctx, g); err != nil {
			return r, problems, fmt.Errorf("error replacing guests of %q: %w", r.RSVPID, err)
		}
	}
	guests := r.NewGuests()
	for _, g := range guests {
		if err = s.Guests.Put(ctx, g); err != nil {
			return r, problems, fmt.Errorf("error adding guest %q to %q: %w", g.Name, r.RSVPID, err)
		}
	}
	s.Logger.Info("rsvp submitted",
		zap.String("rsvpId", r.RSVPID),
		zap.String("submissionId", r.SubmissionID),
		zap.Int("guests", len(guests)))
	return r, problems, nil
}

// RSVP reads a response by the responder's name, in any spacing or case.
func (s Site) RSVP(ctx context.Context, name string) (RSVP, error) {
	return s.RSVPs.Get(ctx, NormalizeRSVPID(name))
}

// ListGuests returns the guests recorded for an RSVP.
func (s Site) ListGuests(ctx context.Context, rsvpID string) ([]Guest, error) {
	return s.Guests.ScanAll(ctx, ap.Equal("rsvp_id", rsvpID))
}

// DumpRSVPs writes RSVPs to w as CSV and returns the number of rows. With mealOnly, only
// responses carrying a meal preference are written (the final RSVP); otherwise every response
// is written (the save-the-date list).
func (s Site) DumpRSVPs(ctx context.Context, w io.Writer, mealOnly bool) (int, error) {
	var filters []ap.Filter
	if mealOnly {
		filters = append(filters, ap.AttributeExists("meal_preference"))
	}
	cw := ap.NewCSVWriter[RSVP](w, s.RSVPs.Schema)
	n, err := cw.WriteAll(s.RSVPs.Scan(ctx, filters...))
	if err != nil {
		return n, fmt.Errorf("error dumping %s rows: %w", s.RSVPs.GetEntityType(), err)
	}
	return n, nil
}

//------------------------------------------------------------------------------
// Seeding
//------------------------------------------------------------------------------

// ApplySeed writes every seed entity, replacing existing content with the same keys.
func (s Site) ApplySeed(ctx context.Context, seed Seed) error {
	for _, g := range seed.Navs {
		if err := s.Navs.Put(ctx, g); err != nil {
			return fmt.Errorf("error seeding nav group %q: %w", g.NavGroupID, err)
		}
	}
	for _, g := range seed.Sections {
		if err := s.Sections.Put(ctx, g); err != nil {
			return fmt.Errorf("error seeding section group %q: %w", g.SectionGroupID, err)
		}
	}
	for _, c := range seed.Couples {
		if err := s.Couples.Put(ctx, c); err != nil {
			return fmt.Errorf("error seeding couple %q: %w", c.CoupleID, err)
		}
	}
	s.Logger.Info("seed applied",
		zap.Int("navGroups", len(seed.Navs)),
		zap.Int("sectionGroups", len(seed.Sections)),
		zap.Int("couples", len(seed.Couples)))
	return nil
}
