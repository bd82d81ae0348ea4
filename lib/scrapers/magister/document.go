package magister

// Document is the aggregate output of one scrape run, keyed by child
// display name. Every timestamp in it has been through chrono.Datum
// and absent values carry a sentinel instead of null.
type Document struct {
	LastUpdate    string                  `json:"last_update"`
	Kinderen      map[string]*ChildData   `json:"kinderen"`
	Cijfers       map[string][]Grade      `json:"cijfers"`
	Absenties     map[string][]Absence    `json:"absenties"`
	Opdrachten    map[string][]Assignment `json:"opdrachten"`
	Studiewijzers map[string][]StudyGuide `json:"studiewijzers"`
	Activiteiten  map[string][]Activity   `json:"activiteiten"`
}

type ChildData struct {
	Naam          string           `json:"naam"`
	Stamnummer    int64            `json:"stamnummer"`
	Geboortedatum string           `json:"geboortedatum"`
	Aanmeldingen  []Enrollment     `json:"aanmeldingen"`
	Afspraken     []Appointment    `json:"afspraken"`
	Wijzigingen   []ScheduleChange `json:"wijzigingen"`

	// derived summary fields
	AantalAfsprakenVandaag int    `json:"aantal_afspraken_vandaag"`
	AantalHuiswerk         int    `json:"aantal_huiswerk"`
	VolgendeAfspraak       string `json:"volgende_afspraak"`
	VolgendeVak            string `json:"volgende_vak"`
}

type Enrollment struct {
	Start      string `json:"start"`
	Einde      string `json:"einde"`
	Lesperiode string `json:"lesperiode"`
	Studie     string `json:"studie"`
}

type Appointment struct {
	Start        string `json:"start"`
	Einde        string `json:"einde"`
	Type         string `json:"type"`
	Lokaal       string `json:"lokaal"`
	Omschrijving string `json:"omschrijving"`
	Inhoud       string `json:"inhoud"`
	Vak          string `json:"vak"`
	IsHuiswerk   bool   `json:"is_huiswerk"`
	// set to "FREQ=DAILY" on segments synthesized from a multi-day entry
	Herhaling string `json:"herhaling,omitempty"`
}

type ScheduleChange struct {
	Start        string `json:"start"`
	Einde        string `json:"einde"`
	Type         string `json:"type"`
	Lokaal       string `json:"lokaal"`
	Omschrijving string `json:"omschrijving"`
	Inhoud       string `json:"inhoud"`
}

type Grade struct {
	Vak          string  `json:"vak"`
	Omschrijving string  `json:"omschrijving"`
	Waarde       string  `json:"waarde"`
	Weegfactor   float64 `json:"weegfactor"`
	IngevoerdOp  string  `json:"ingevoerd_op"`
}

type Absence struct {
	Start        string `json:"start"`
	Einde        string `json:"einde"`
	Omschrijving string `json:"omschrijving"`
	Afspraak     string `json:"afspraak"`
}

type Assignment struct {
	Titel         string `json:"titel"`
	Vak           string `json:"vak"`
	InleverenVoor string `json:"inleveren_voor"`
	IngeleverdOp  string `json:"ingeleverd_op"`
	Omschrijving  string `json:"omschrijving"`
}

type Activity struct {
	Titel          string `json:"titel"`
	ZichtbaarVanaf string `json:"zichtbaar_vanaf"`
	ZichtbaarTot   string `json:"zichtbaar_tot"`
}

type StudyGuide struct {
	Titel      string         `json:"titel"`
	Van        string         `json:"van"`
	TotEnMet   string         `json:"tot_en_met"`
	Onderdelen []GuideSection `json:"onderdelen"`
}

type GuideSection struct {
	Titel        string `json:"titel"`
	Omschrijving string `json:"omschrijving"`
}

// OpenAssignments filters assignments that have not been handed in.
func OpenAssignments(assignments []Assignment) []Assignment {
	var open []Assignment
	for _, a := range assignments {
		if a.IngeleverdOp == "" || a.IngeleverdOp == "?" {
			open = append(open, a)
		}
	}
	return open
}
