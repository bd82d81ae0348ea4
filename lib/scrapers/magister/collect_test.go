package magister

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"magister-backend/lib/chrono"
	"magister-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

// fakeApi serves canned school API responses and records the query
// string and bearer token of every request.
type fakeApi struct {
	server  *httptest.Server
	mux     *http.ServeMux
	queries map[string]url.Values
	bearers map[string]string
}

func newFakeApi(t *testing.T) *fakeApi {
	a := &fakeApi{
		mux:     http.NewServeMux(),
		queries: map[string]url.Values{},
		bearers: map[string]string{},
	}
	a.server = httptest.NewServer(a.mux)
	t.Cleanup(a.server.Close)
	return a
}

func (a *fakeApi) handle(path, body string) {
	a.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		a.queries[r.URL.Path] = r.URL.Query()
		a.bearers[r.URL.Path] = r.Header.Get("Authorization")
		fmt.Fprint(w, body)
	})
}

func (a *fakeApi) client(t *testing.T) *Client {
	c, err := NewClient(ClientOptions{SchoolServer: "school.magister.net"})
	require.NoError(t, err)
	c.http.SetTransport(rewriteTransport{host: a.server.Listener.Addr().String()})
	c.SetAccessToken("tok-123")
	return c
}

// timestamps anchored to the current local date, in the portal's
// UTC-with-fractions wire shape
func localWire(dayOffset, hour int) string {
	n := timezone.Now()
	lt := time.Date(n.Year(), n.Month(), n.Day()+dayOffset, hour, 0, 0, 0, timezone.Location)
	return lt.UTC().Format("2006-01-02T15:04:05") + ".0000000Z"
}

func localDisplay(dayOffset, hour int) string {
	n := timezone.Now()
	lt := time.Date(n.Year(), n.Month(), n.Day()+dayOffset, hour, 0, 0, 0, timezone.Location)
	return lt.Format("2006-01-02 15:04:05")
}

func dateOffset(days int) string {
	n := timezone.Now()
	return time.Date(n.Year(), n.Month(), n.Day()+days, 0, 0, 0, 0, timezone.Location).Format("2006-01-02")
}

func TestCollectParentAccount(t *testing.T) {
	api := newFakeApi(t)
	api.handle("/api/account", `{"Persoon":{"Id":100,"Roepnaam":"Piet","Achternaam":"Ouder"}}`)
	api.handle("/api/personen/100/kinderen", `{"Items":[
		{"Id":200,"Roepnaam":"Kees","Achternaam":"Jansen","Geboortedatum":"2010-05-01T00:00:00.0000000Z","Stamnummer":1234}
	]}`)
	api.handle("/api/personen/200/aanmeldingen", fmt.Sprintf(`{"Items":[
		{"Start":"%sT00:00:00.0000000Z","Einde":"%sT00:00:00.0000000Z","Eind":"%sT00:00:00.0000000Z",
		 "Lesperiode":"P9","Omschrijving":"2.1 VWO 4"}
	]}`, dateOffset(-30), dateOffset(180), dateOffset(180)))
	api.handle("/api/personen/200/afspraken", fmt.Sprintf(`{"Items":[
		{"Start":"%s","Einde":"%s","InfoType":1,"Lokatie":"A12","Omschrijving":"wiskunde",
		 "Inhoud":"<p>som 1</p>","Vak":"wi"},
		{"Start":"","Datum":"%s","Einde":"","Eind":"%s","InfoType":0,"Omschrijving":"excursie","Vak":"ak"}
	]}`, localWire(0, 0), localWire(0, 1), localWire(1, 9), localWire(1, 10)))
	api.handle("/api/personen/200/roosterwijzigingen", fmt.Sprintf(`{"Items":[
		{"Start":"%s","Eind":"%s","InfoType":5,"Lokatie":"B2","Omschrijving":"uitval","Inhoud":"les vervalt"}
	]}`, localWire(1, 9), localWire(1, 10)))
	api.handle("/api/personen/200/cijfers/laatste", `{"items":[
		{"vak":{"code":"NE"},"omschrijving":"toets","waarde":"7.5","weegfactor":2,"ingevoerdOp":"2024-09-02T08:25:00.0000000Z"}
	]}`)
	api.handle("/api/personen/200/absenties", `{"Items":[
		{"Start":"2024-09-02T08:25:00.0000000Z","Eind":"2024-09-02T09:10:00.0000000Z",
		 "Omschrijving":"ziek","Afspraak":{"Omschrijving":"Engels"}}
	]}`)
	api.handle("/api/personen/200/opdrachten", `{"Items":[
		{"Titel":"verslag","Vak":"bio","InleverenVoor":"2024-09-20T22:00:00.0000000Z","IngeleverdOp":"","Omschrijving":"<p>hoofdstuk 3</p>"}
	]}`)
	api.handle("/api/personen/200/activiteiten", `{"Items":[
		{"Titel":"sportdag","ZichtbaarVanaf":"2024-09-01T00:00:00.0000000Z","ZichtbaarTotEnMet":"2024-09-10T00:00:00.0000000Z"}
	]}`)
	api.handle("/api/leerlingen/200/studiewijzers", `{"Items":[{"Id":7,"Titel":"Wiskunde"}]}`)
	api.handle("/api/leerlingen/200/studiewijzers/7", `{"Titel":"Wiskunde","Van":"2024-09-01T00:00:00.0000000Z","TotEnMet":"2024-12-01T00:00:00.0000000Z",
		"Onderdelen":{"Items":[{"Titel":"week 1","Omschrijving":"maak <b>opgave 1</b>"}]}}`)

	doc, err := Collect(context.Background(), api.client(t))
	require.NoError(t, err)

	require.Equal(t, "Bearer tok-123", api.bearers["/api/account"])
	_, err = time.Parse(time.RFC3339, doc.LastUpdate)
	require.NoError(t, err)

	require.Len(t, doc.Kinderen, 1)
	data := doc.Kinderen["Kees Jansen"]
	require.NotNil(t, data)
	require.Equal(t, int64(1234), data.Stamnummer)

	require.Len(t, data.Aanmeldingen, 1)
	require.Equal(t, dateOffset(-30), data.Aanmeldingen[0].Start[:10])
	require.Equal(t, "P9", data.Aanmeldingen[0].Lesperiode)
	require.Empty(t, data.Aanmeldingen[0].Studie)

	require.Len(t, data.Afspraken, 2)
	require.Equal(t, localDisplay(0, 0), data.Afspraken[0].Start)
	require.Equal(t, "hw", data.Afspraken[0].Type)
	require.True(t, data.Afspraken[0].IsHuiswerk)
	require.Equal(t, "som 1\n", data.Afspraken[0].Inhoud)
	// start/end fall back to Datum and Eind when Start and Einde are absent
	require.Equal(t, localDisplay(1, 9), data.Afspraken[1].Start)
	require.Equal(t, localDisplay(1, 10), data.Afspraken[1].Einde)
	require.False(t, data.Afspraken[1].IsHuiswerk)

	require.Len(t, data.Wijzigingen, 1)
	require.Equal(t, "MO", data.Wijzigingen[0].Type)
	require.Equal(t, localDisplay(1, 10), data.Wijzigingen[0].Einde)

	require.Equal(t, 1, data.AantalAfsprakenVandaag)
	require.Equal(t, 1, data.AantalHuiswerk)
	require.Equal(t, localDisplay(1, 9), data.VolgendeAfspraak)
	require.Equal(t, "ak", data.VolgendeVak)

	schedule := api.queries["/api/personen/200/afspraken"]
	require.Equal(t, chrono.DeltaYmd(0, 0, 0), schedule.Get("van"))
	require.Equal(t, chrono.DeltaYmd(0, 0, 2), schedule.Get("tot"))
	require.Equal(t, "2.1", schedule.Get("lesperiode"))

	require.Equal(t, []Grade{{
		Vak:          "NE",
		Omschrijving: "toets",
		Waarde:       "7.5",
		Weegfactor:   2,
		IngevoerdOp:  "2024-09-02 10:25:00",
	}}, doc.Cijfers["Kees Jansen"])

	absQuery := api.queries["/api/personen/200/absenties"]
	require.Equal(t, chrono.DeltaYmd(-1, 0, 0), absQuery.Get("van"))
	require.Equal(t, chrono.DeltaYmd(0, 0, 1), absQuery.Get("tot"))
	require.Equal(t, []Absence{{
		Start:        "2024-09-02 10:25:00",
		Einde:        "2024-09-02 11:10:00",
		Omschrijving: "ziek",
		Afspraak:     "Engels",
	}}, doc.Absenties["Kees Jansen"])

	require.Equal(t, "50", api.queries["/api/personen/200/cijfers/laatste"].Get("top"))

	assignments := doc.Opdrachten["Kees Jansen"]
	require.Equal(t, []Assignment{{
		Titel:         "verslag",
		Vak:           "bio",
		InleverenVoor: "2024-09-21 00:00:00",
		IngeleverdOp:  "?",
		Omschrijving:  "hoofdstuk 3\n",
	}}, assignments)
	require.Len(t, OpenAssignments(assignments), 1)

	require.Equal(t, []Activity{{
		Titel:          "sportdag",
		ZichtbaarVanaf: "2024-09-01 02:00:00",
		ZichtbaarTot:   "2024-09-10 02:00:00",
	}}, doc.Activiteiten["Kees Jansen"])

	require.Equal(t, []StudyGuide{{
		Titel:    "Wiskunde",
		Van:      "2024-09-01 02:00:00",
		TotEnMet: "2024-12-01 01:00:00",
		Onderdelen: []GuideSection{{
			Titel:        "week 1",
			Omschrijving: "maak opgave 1",
		}},
	}}, doc.Studiewijzers["Kees Jansen"])
}

func TestCollectStudentAccount(t *testing.T) {
	api := newFakeApi(t)
	api.handle("/api/account", `{"Persoon":{"Id":300,"Roepnaam":"Anna","Achternaam":"Visser","Stamnummer":77}}`)
	// student accounts get a permission error on the child listing
	api.handle("/api/personen/300/kinderen", `{"Fouttype":"GeenRechten"}`)
	api.handle("/api/personen/300/aanmeldingen", `{"Items":[]}`)
	api.handle("/api/personen/300/afspraken", `{"Items":[]}`)
	api.handle("/api/personen/300/roosterwijzigingen", `{"Items":[]}`)
	api.handle("/api/personen/300/cijfers/laatste", `{"items":[]}`)
	api.handle("/api/personen/300/absenties", `{"Items":[]}`)
	api.handle("/api/personen/300/opdrachten", `{"Items":[]}`)
	api.handle("/api/personen/300/activiteiten", `{"Items":[]}`)
	api.handle("/api/leerlingen/300/studiewijzers", `{"Items":[]}`)

	doc, err := Collect(context.Background(), api.client(t))
	require.NoError(t, err)

	require.Len(t, doc.Kinderen, 1)
	data := doc.Kinderen["Anna Visser"]
	require.NotNil(t, data)
	require.Equal(t, int64(77), data.Stamnummer)
	require.Equal(t, NoAppointment, data.VolgendeAfspraak)
	require.Empty(t, doc.Cijfers["Anna Visser"])
}

func TestCollectWithoutIdentity(t *testing.T) {
	api := newFakeApi(t)
	// expired tokens yield an account response without a person
	api.handle("/api/account", `{}`)

	_, err := Collect(context.Background(), api.client(t))
	require.Error(t, err)
	require.True(t, IsAuthenticationRequired(err))
}

func TestResolveLesperiode(t *testing.T) {
	items := []AanmeldingItem{
		{
			Start:        "2023-08-01T00:00:00.0000000Z",
			Eind:         "2024-07-20T00:00:00.0000000Z",
			Omschrijving: "1.2 VWO 3",
			Lesperiode:   "P1",
		},
		{
			Start:        "2024-08-01T00:00:00.0000000Z",
			Eind:         "2025-07-20T00:00:00.0000000Z",
			Omschrijving: "2.1 VWO 4",
			Lesperiode:   "P2",
		},
	}

	require.Equal(t, "2.1", resolveLesperiode(items, "2024-09-02"))
	require.Equal(t, "1.2", resolveLesperiode(items, "2024-01-15"))
	// outside every range the declared term of the last enrollment wins
	require.Equal(t, "P2", resolveLesperiode(items, "2030-01-01"))
	require.Equal(t, "", resolveLesperiode(nil, "2024-09-02"))
	require.Equal(t, "", resolveLesperiode(items, "not a date"))
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 9, 2, 11, 0, 0, 0, timezone.Location)
	data := &ChildData{
		Afspraken: []Appointment{
			{Start: "2024-09-02 09:00:00", Vak: "ne", IsHuiswerk: true},
			{Start: "2024-09-02 13:00:00", Vak: "wi"},
			{Start: "2024-09-02 12:00:00", Vak: "en"},
			{Start: "2024-09-03 09:00:00", Vak: "ak", IsHuiswerk: true},
		},
	}
	summarize(data, now)

	require.Equal(t, 3, data.AantalAfsprakenVandaag)
	require.Equal(t, 2, data.AantalHuiswerk)
	require.Equal(t, "2024-09-02 12:00:00", data.VolgendeAfspraak)
	require.Equal(t, "en", data.VolgendeVak)

	empty := &ChildData{}
	summarize(empty, now)
	require.Equal(t, NoAppointment, empty.VolgendeAfspraak)
	require.Equal(t, "", empty.VolgendeVak)
}
