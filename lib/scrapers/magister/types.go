package magister

import (
	"context"
	"net/url"
	"strconv"
)

// wire types, field names follow the portal's Dutch JSON keys

type Persoon struct {
	Id            int64  `json:"Id"`
	Roepnaam      string `json:"Roepnaam"`
	Achternaam    string `json:"Achternaam"`
	Geboortedatum string `json:"Geboortedatum"`
	Stamnummer    int64  `json:"Stamnummer"`
}

type AccountResponse struct {
	Persoon Persoon `json:"Persoon"`
}

type ChildrenResponse struct {
	// set on permission errors, which is how student accounts
	// (no enumerable children) announce themselves
	Fouttype string    `json:"Fouttype"`
	Items    []Persoon `json:"Items"`
}

type AanmeldingItem struct {
	Start        string `json:"Start"`
	Einde        string `json:"Einde"`
	Eind         string `json:"Eind"`
	Lesperiode   string `json:"Lesperiode"`
	Omschrijving string `json:"Omschrijving"`
	Studie       *struct {
		Omschrijving string `json:"Omschrijving"`
	} `json:"Studie"`
}

type AanmeldingenResponse struct {
	Items []AanmeldingItem `json:"Items"`
}

type AfspraakItem struct {
	Start        string `json:"Start"`
	Einde        string `json:"Einde"`
	Eind         string `json:"Eind"`
	Datum        string `json:"Datum"`
	InfoType     int    `json:"InfoType"`
	Lokatie      string `json:"Lokatie"`
	Omschrijving string `json:"Omschrijving"`
	Inhoud       string `json:"Inhoud"`
	Vak          string `json:"Vak"`
}

type AfsprakenResponse struct {
	Items []AfspraakItem `json:"Items"`
}

type CijferItem struct {
	Vak struct {
		Code string `json:"code"`
	} `json:"vak"`
	Omschrijving string  `json:"omschrijving"`
	Waarde       string  `json:"waarde"`
	Weegfactor   float64 `json:"weegfactor"`
	IngevoerdOp  string  `json:"ingevoerdOp"`
}

type CijfersResponse struct {
	Items []CijferItem `json:"items"`
}

type AbsentieItem struct {
	Start        string `json:"Start"`
	Eind         string `json:"Eind"`
	Omschrijving string `json:"Omschrijving"`
	Afspraak     *struct {
		Omschrijving string `json:"Omschrijving"`
	} `json:"Afspraak"`
}

type AbsentiesResponse struct {
	Items []AbsentieItem `json:"Items"`
}

type OpdrachtItem struct {
	Titel         string `json:"Titel"`
	Vak           string `json:"Vak"`
	InleverenVoor string `json:"InleverenVoor"`
	IngeleverdOp  string `json:"IngeleverdOp"`
	Omschrijving  string `json:"Omschrijving"`
}

type OpdrachtenResponse struct {
	Items []OpdrachtItem `json:"Items"`
}

type ActiviteitItem struct {
	Titel             string `json:"Titel"`
	ZichtbaarVanaf    string `json:"ZichtbaarVanaf"`
	ZichtbaarTotEnMet string `json:"ZichtbaarTotEnMet"`
}

type ActiviteitenResponse struct {
	Items []ActiviteitItem `json:"Items"`
}

type StudiewijzerRef struct {
	Id    int64  `json:"Id"`
	Titel string `json:"Titel"`
}

type StudiewijzersResponse struct {
	Items []StudiewijzerRef `json:"Items"`
}

type OnderdeelItem struct {
	Titel        string `json:"Titel"`
	Omschrijving string `json:"Omschrijving"`
}

type StudiewijzerDetail struct {
	Titel      string `json:"Titel"`
	Van        string `json:"Van"`
	TotEnMet   string `json:"TotEnMet"`
	Onderdelen struct {
		Items []OnderdeelItem `json:"Items"`
	} `json:"Onderdelen"`
}

func (c *Client) GetAccount(ctx context.Context) (*AccountResponse, error) {
	res := &AccountResponse{}
	err := c.apiGet(ctx, res, nil, "account")
	return res, err
}

func (c *Client) GetChildren(ctx context.Context, personId int64) (*ChildrenResponse, error) {
	res := &ChildrenResponse{}
	err := c.apiGet(ctx, res, nil, "personen", personId, "kinderen")
	return res, err
}

func (c *Client) GetAanmeldingen(ctx context.Context, childId int64) (*AanmeldingenResponse, error) {
	res := &AanmeldingenResponse{}
	err := c.apiGet(ctx, res, nil, "personen", childId, "aanmeldingen")
	return res, err
}

// AppointmentQuery scopes schedule requests to a date range and, when
// known, the active lesperiode.
type AppointmentQuery struct {
	Van        string
	Tot        string
	Lesperiode string
}

func (q AppointmentQuery) values() url.Values {
	query := url.Values{}
	query.Set("van", q.Van)
	query.Set("tot", q.Tot)
	if q.Lesperiode != "" {
		query.Set("lesperiode", q.Lesperiode)
	}
	return query
}

func (c *Client) GetAfspraken(ctx context.Context, childId int64, q AppointmentQuery) (*AfsprakenResponse, error) {
	res := &AfsprakenResponse{}
	err := c.apiGet(ctx, res, q.values(), "personen", childId, "afspraken")
	return res, err
}

func (c *Client) GetRoosterwijzigingen(ctx context.Context, childId int64, q AppointmentQuery) (*AfsprakenResponse, error) {
	res := &AfsprakenResponse{}
	err := c.apiGet(ctx, res, q.values(), "personen", childId, "roosterwijzigingen")
	return res, err
}

func (c *Client) GetRecentCijfers(ctx context.Context, childId int64, top int) (*CijfersResponse, error) {
	query := url.Values{}
	query.Set("top", strconv.Itoa(top))
	res := &CijfersResponse{}
	err := c.apiGet(ctx, res, query, "personen", childId, "cijfers", "laatste")
	return res, err
}

func (c *Client) GetAbsenties(ctx context.Context, childId int64, van, tot string) (*AbsentiesResponse, error) {
	query := url.Values{}
	query.Set("van", van)
	query.Set("tot", tot)
	res := &AbsentiesResponse{}
	err := c.apiGet(ctx, res, query, "personen", childId, "absenties")
	return res, err
}

func (c *Client) GetOpdrachten(ctx context.Context, childId int64) (*OpdrachtenResponse, error) {
	res := &OpdrachtenResponse{}
	err := c.apiGet(ctx, res, nil, "personen", childId, "opdrachten")
	return res, err
}

func (c *Client) GetActiviteiten(ctx context.Context, childId int64) (*ActiviteitenResponse, error) {
	res := &ActiviteitenResponse{}
	err := c.apiGet(ctx, res, nil, "personen", childId, "activiteiten")
	return res, err
}

func (c *Client) GetStudiewijzers(ctx context.Context, childId int64) (*StudiewijzersResponse, error) {
	res := &StudiewijzersResponse{}
	err := c.apiGet(ctx, res, nil, "leerlingen", childId, "studiewijzers")
	return res, err
}

func (c *Client) GetStudiewijzer(ctx context.Context, childId, guideId int64) (*StudiewijzerDetail, error) {
	res := &StudiewijzerDetail{}
	err := c.apiGet(ctx, res, nil, "leerlingen", childId, "studiewijzers", guideId)
	return res, err
}
