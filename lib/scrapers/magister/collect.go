package magister

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"magister-backend/lib/chrono"
	"magister-backend/lib/htmlutil"
	"magister-backend/lib/timezone"

	"go.opentelemetry.io/otel/codes"
)

// NoAppointment is the sentinel for "no upcoming appointment".
const NoAppointment = "Geen"

// safeDatum returns the first non-empty candidate through
// chrono.Datum, or the sentinel when all are absent.
func safeDatum(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return chrono.Datum(c)
		}
	}
	return chrono.Unknown
}

// Collect drives the authenticated data pipeline: resolve the
// account, enumerate children (or fall back to the account itself for
// student logins), and fetch every section per child. The client must
// already hold a valid token.
func Collect(ctx context.Context, c *Client) (*Document, error) {
	ctx, span := tracer.Start(ctx, "client:Collect")
	defer span.End()

	account, err := c.GetAccount(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "account lookup failed")
		return nil, err
	}
	if account.Persoon.Id == 0 {
		span.SetStatus(codes.Error, "no identity")
		return nil, fmt.Errorf("could not get account info")
	}

	kinderen, err := resolveChildren(ctx, c, account.Persoon)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		LastUpdate:    timezone.Now().Format(time.RFC3339),
		Kinderen:      map[string]*ChildData{},
		Cijfers:       map[string][]Grade{},
		Absenties:     map[string][]Absence{},
		Opdrachten:    map[string][]Assignment{},
		Studiewijzers: map[string][]StudyGuide{},
		Activiteiten:  map[string][]Activity{},
	}

	for _, kind := range kinderen {
		name := fmt.Sprintf("%s %s", kind.Roepnaam, kind.Achternaam)
		err := collectChild(ctx, c, doc, name, kind)
		if err != nil {
			return nil, err
		}
	}

	return doc, nil
}

// resolveChildren distinguishes parent accounts (enumerable children)
// from student accounts, which answer the child listing with a
// permission error and scrape as their own single child.
func resolveChildren(ctx context.Context, c *Client, self Persoon) ([]Persoon, error) {
	res, err := c.GetChildren(ctx, self.Id)
	if err != nil {
		slog.DebugContext(ctx, "child listing failed, assuming student account", "err", err)
		return []Persoon{self}, nil
	}
	if res.Fouttype != "" {
		slog.DebugContext(ctx, "child listing denied, assuming student account", "fouttype", res.Fouttype)
		return []Persoon{self}, nil
	}
	return res.Items, nil
}

func collectChild(ctx context.Context, c *Client, doc *Document, name string, kind Persoon) error {
	data := &ChildData{
		Naam:          name,
		Stamnummer:    kind.Stamnummer,
		Geboortedatum: kind.Geboortedatum,
	}

	aanmeldingen, err := c.GetAanmeldingen(ctx, kind.Id)
	if err != nil {
		return err
	}
	for _, item := range aanmeldingen.Items {
		studie := ""
		if item.Studie != nil {
			studie = item.Studie.Omschrijving
		}
		data.Aanmeldingen = append(data.Aanmeldingen, Enrollment{
			Start:      chrono.Datum(item.Start),
			Einde:      chrono.Datum(item.Einde),
			Lesperiode: item.Lesperiode,
			Studie:     studie,
		})
	}

	// fixed 2-week forward schedule window
	query := AppointmentQuery{
		Van:        chrono.DeltaYmd(0, 0, 0),
		Tot:        chrono.DeltaYmd(0, 0, 2),
		Lesperiode: resolveLesperiode(aanmeldingen.Items, chrono.DeltaYmd(0, 0, 0)),
	}

	afspraken, err := c.GetAfspraken(ctx, kind.Id, query)
	if err != nil {
		return err
	}
	for _, item := range afspraken.Items {
		data.Afspraken = append(data.Afspraken, Appointment{
			Start:        safeDatum(item.Start, item.Datum),
			Einde:        safeDatum(item.Einde, item.Eind),
			Type:         InfoTypeTag(item.InfoType),
			Lokaal:       item.Lokatie,
			Omschrijving: item.Omschrijving,
			Inhoud:       htmlutil.Flatten(item.Inhoud),
			Vak:          item.Vak,
			IsHuiswerk:   item.InfoType == 1,
		})
	}

	wijzigingen, err := c.GetRoosterwijzigingen(ctx, kind.Id, query)
	if err != nil {
		return err
	}
	for _, item := range wijzigingen.Items {
		data.Wijzigingen = append(data.Wijzigingen, ScheduleChange{
			Start:        safeDatum(item.Start, item.Datum),
			Einde:        safeDatum(item.Eind, item.Einde),
			Type:         InfoTypeTag(item.InfoType),
			Lokaal:       item.Lokatie,
			Omschrijving: item.Omschrijving,
			Inhoud:       htmlutil.Flatten(item.Inhoud),
		})
	}

	summarize(data, timezone.Now())
	doc.Kinderen[name] = data

	cijfers, err := c.GetRecentCijfers(ctx, kind.Id, 50)
	if err != nil {
		return err
	}
	grades := []Grade{}
	for _, item := range cijfers.Items {
		grades = append(grades, Grade{
			Vak:          item.Vak.Code,
			Omschrijving: item.Omschrijving,
			Waarde:       item.Waarde,
			Weegfactor:   item.Weegfactor,
			IngevoerdOp:  chrono.Datum(item.IngevoerdOp),
		})
	}
	doc.Cijfers[name] = grades

	// one year back, one week forward
	absenties, err := c.GetAbsenties(ctx, kind.Id, chrono.DeltaYmd(-1, 0, 0), chrono.DeltaYmd(0, 0, 1))
	if err != nil {
		return err
	}
	absences := []Absence{}
	for _, item := range absenties.Items {
		afspraak := ""
		if item.Afspraak != nil {
			afspraak = item.Afspraak.Omschrijving
		}
		absences = append(absences, Absence{
			Start:        chrono.Datum(item.Start),
			Einde:        chrono.Datum(item.Eind),
			Omschrijving: item.Omschrijving,
			Afspraak:     afspraak,
		})
	}
	doc.Absenties[name] = absences

	opdrachten, err := c.GetOpdrachten(ctx, kind.Id)
	if err != nil {
		return err
	}
	assignments := []Assignment{}
	for _, item := range opdrachten.Items {
		assignments = append(assignments, Assignment{
			Titel:         item.Titel,
			Vak:           item.Vak,
			InleverenVoor: chrono.Datum(item.InleverenVoor),
			IngeleverdOp:  chrono.Datum(item.IngeleverdOp),
			Omschrijving:  htmlutil.Flatten(item.Omschrijving),
		})
	}
	doc.Opdrachten[name] = assignments

	activiteiten, err := c.GetActiviteiten(ctx, kind.Id)
	if err != nil {
		return err
	}
	activities := []Activity{}
	for _, item := range activiteiten.Items {
		activities = append(activities, Activity{
			Titel:          item.Titel,
			ZichtbaarVanaf: chrono.Datum(item.ZichtbaarVanaf),
			ZichtbaarTot:   chrono.Datum(item.ZichtbaarTotEnMet),
		})
	}
	doc.Activiteiten[name] = activities

	studiewijzers, err := c.GetStudiewijzers(ctx, kind.Id)
	if err != nil {
		return err
	}
	guides := []StudyGuide{}
	for _, ref := range studiewijzers.Items {
		detail, err := c.GetStudiewijzer(ctx, kind.Id, ref.Id)
		if err != nil {
			return err
		}
		guide := StudyGuide{
			Titel:      detail.Titel,
			Van:        chrono.Datum(detail.Van),
			TotEnMet:   chrono.Datum(detail.TotEnMet),
			Onderdelen: []GuideSection{},
		}
		for _, o := range detail.Onderdelen.Items {
			guide.Onderdelen = append(guide.Onderdelen, GuideSection{
				Titel:        o.Titel,
				Omschrijving: htmlutil.Flatten(o.Omschrijving),
			})
		}
		guides = append(guides, guide)
	}
	doc.Studiewijzers[name] = guides

	return nil
}

// resolveLesperiode finds the term code covering targetDate: the
// first word of the enrollment description whose start/end range
// matches, or as fallback the declared term of the most recent
// enrollment.
func resolveLesperiode(items []AanmeldingItem, targetDate string) string {
	target, err := time.Parse("2006-01-02", targetDate)
	if err != nil {
		return ""
	}

	for _, item := range items {
		if len(item.Start) < 10 || len(item.Eind) < 10 {
			continue
		}
		start, err := time.Parse("2006-01-02", item.Start[:10])
		if err != nil {
			continue
		}
		end, err := time.Parse("2006-01-02", item.Eind[:10])
		if err != nil {
			continue
		}
		if !target.Before(start) && !target.After(end) {
			fields := strings.Fields(item.Omschrijving)
			if len(fields) > 0 {
				return fields[0]
			}
			return ""
		}
	}

	if len(items) > 0 {
		return items[len(items)-1].Lesperiode
	}
	return ""
}

// summarize fills the per-child derived fields: today's schedule
// count, homework count and the next upcoming appointment.
func summarize(data *ChildData, now time.Time) {
	today := now.Format("2006-01-02")
	nowStr := now.Format("2006-01-02 15:04:05")

	for _, a := range data.Afspraken {
		if strings.HasPrefix(a.Start, today) {
			data.AantalAfsprakenVandaag++
		}
		if a.IsHuiswerk {
			data.AantalHuiswerk++
		}
	}

	data.VolgendeAfspraak = NoAppointment
	data.VolgendeVak = ""
	for _, a := range data.Afspraken {
		if a.Start <= nowStr {
			continue
		}
		if data.VolgendeAfspraak == NoAppointment || a.Start < data.VolgendeAfspraak {
			data.VolgendeAfspraak = a.Start
			data.VolgendeVak = a.Vak
		}
	}
}
