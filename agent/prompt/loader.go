// Package prompt holds the user-facing message catalog, one embedded YAML
// file per language.
package prompt

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/tanpawarit/autocredit-bot/agent/bank"
	"github.com/tanpawarit/autocredit-bot/agent/catalog"
	contractx "github.com/tanpawarit/autocredit-bot/agent/contract"
)

const DefaultLanguage = "uk"

var (
	ErrUnknownLanguage = errors.New("unknown prompt language")
	ErrPromptMissing   = errors.New("required prompt is missing")
)

//go:embed template/*.yaml
var templates embed.FS

// Messages is the raw catalog as stored in YAML.
type Messages struct {
	ChooseBrand  string `yaml:"brand_menu"`
	CarPrice     string `yaml:"car_price"`
	FirstPayment string `yaml:"first_payment"`
	ChooseBank   string `yaml:"bank_menu"`
	LoanTerm     string `yaml:"loan_term"`

	UnknownCommand   string `yaml:"unknown_command"`
	UnknownSelection string `yaml:"unknown_selection"`
	InvalidPrice     string `yaml:"invalid_price"`
	InvalidPayment   string `yaml:"invalid_payment"`
	UnknownBank      string `yaml:"unknown_bank"`
	InvalidTerm      string `yaml:"invalid_term"`
	SelectBankFirst  string `yaml:"select_bank_first"`
	InternalError    string `yaml:"internal_error"`

	Summary        string `yaml:"summary"`
	StrategyFailed string `yaml:"strategy_failed"`
	Quote          string `yaml:"quote"`

	Brands map[string]string `yaml:"brands"`
	Banks  map[string]string `yaml:"banks"`
}

// PromptSet is a loaded, validated catalog for one language.
type PromptSet struct {
	Messages
	Lang string

	summary        *template.Template
	strategyFailed *template.Template
	quote          *template.Template
}

// SummaryData feeds the "entered data" line sent before a quote.
type SummaryData struct {
	CarPrice     float64
	FirstPayment float64
	Bank         catalog.Bank
	TermMonths   int
}

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}

// Load parses the catalog for lang. An empty lang selects DefaultLanguage.
func Load(lang string) (*PromptSet, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = DefaultLanguage
	}

	raw, err := templates.ReadFile("template/" + lang + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, lang)
	}

	var msgs Messages
	if err := yaml.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("decode %s prompts: %w", lang, err)
	}
	trimAll(&msgs)
	if err := msgs.validate(); err != nil {
		return nil, fmt.Errorf("%s prompts: %w", lang, err)
	}

	p := &PromptSet{Messages: msgs, Lang: lang}
	for _, tpl := range []struct {
		name string
		src  string
		dst  **template.Template
	}{
		{"summary", msgs.Summary, &p.summary},
		{"strategy_failed", msgs.StrategyFailed, &p.strategyFailed},
		{"quote", msgs.Quote, &p.quote},
	} {
		parsed, err := template.New(tpl.name).Funcs(funcs).Option("missingkey=error").Parse(tpl.src)
		if err != nil {
			return nil, fmt.Errorf("parse %s/%s template: %w", lang, tpl.name, err)
		}
		*tpl.dst = parsed
	}
	return p, nil
}

func MustLoad(lang string) *PromptSet {
	p, err := Load(lang)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *PromptSet) BrandLabel(b catalog.Brand) string {
	if label, ok := p.Brands[string(b)]; ok {
		return label
	}
	return string(b)
}

func (p *PromptSet) BankLabel(b catalog.Bank) string {
	if label, ok := p.Banks[string(b)]; ok {
		return label
	}
	return string(b)
}

func (p *PromptSet) BrandMenu() contractx.Menu {
	rows := catalog.BrandRows()
	menu := make(contractx.Menu, 0, len(rows))
	for _, row := range rows {
		buttons := make([]contractx.Button, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, contractx.Button{Label: p.BrandLabel(b), Token: string(b)})
		}
		menu = append(menu, buttons)
	}
	return menu
}

func (p *PromptSet) BankMenu() contractx.Menu {
	rows := catalog.BankRows()
	menu := make(contractx.Menu, 0, len(rows))
	for _, row := range rows {
		buttons := make([]contractx.Button, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, contractx.Button{Label: p.BankLabel(b), Token: string(b)})
		}
		menu = append(menu, buttons)
	}
	return menu
}

func (p *PromptSet) RenderSummary(d SummaryData) (string, error) {
	return render(p.summary, struct {
		SummaryData
		BankLabel string
	}{d, p.BankLabel(d.Bank)})
}

// FormatQuote renders a bank quote; it satisfies bank.Formatter.
func (p *PromptSet) FormatQuote(q bank.Quote) (string, error) {
	return render(p.quote, struct {
		bank.Quote
		BankLabel string
	}{q, p.BankLabel(q.Bank)})
}

func (p *PromptSet) RenderStrategyFailed(cause error) string {
	text, err := render(p.strategyFailed, struct{ Cause string }{causeText(cause)})
	if err != nil {
		return p.InternalError
	}
	return text
}

// Reprompt joins an error explanation with the prompt to answer next.
func Reprompt(explanation, prompt string) string {
	if prompt == "" {
		return explanation
	}
	return explanation + "\n" + prompt
}

func render(tpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func trimAll(m *Messages) {
	for _, s := range []*string{
		&m.ChooseBrand, &m.CarPrice, &m.FirstPayment, &m.ChooseBank, &m.LoanTerm,
		&m.UnknownCommand, &m.UnknownSelection, &m.InvalidPrice, &m.InvalidPayment,
		&m.UnknownBank, &m.InvalidTerm, &m.SelectBankFirst, &m.InternalError,
		&m.Summary, &m.StrategyFailed, &m.Quote,
	} {
		*s = strings.TrimSpace(*s)
	}
}

func (m Messages) validate() error {
	required := map[string]string{
		"brand_menu":        m.ChooseBrand,
		"car_price":         m.CarPrice,
		"first_payment":     m.FirstPayment,
		"bank_menu":         m.ChooseBank,
		"loan_term":         m.LoanTerm,
		"unknown_command":   m.UnknownCommand,
		"unknown_selection": m.UnknownSelection,
		"invalid_price":     m.InvalidPrice,
		"invalid_payment":   m.InvalidPayment,
		"unknown_bank":      m.UnknownBank,
		"invalid_term":      m.InvalidTerm,
		"select_bank_first": m.SelectBankFirst,
		"internal_error":    m.InternalError,
		"summary":           m.Summary,
		"strategy_failed":   m.StrategyFailed,
		"quote":             m.Quote,
	}
	for key, val := range required {
		if val == "" {
			return fmt.Errorf("%w: %s", ErrPromptMissing, key)
		}
	}
	for _, b := range catalog.AllBrands() {
		if m.Brands[string(b)] == "" {
			return fmt.Errorf("%w: brands.%s", ErrPromptMissing, b)
		}
	}
	for _, b := range catalog.AllBanks() {
		if m.Banks[string(b)] == "" {
			return fmt.Errorf("%w: banks.%s", ErrPromptMissing, b)
		}
	}
	return nil
}
