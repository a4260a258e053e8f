package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

var dealWonTemplate = template.Must(template.New("deal_won").Parse(`<html><body>
<p>Hello {{.ManagerName}},</p>
<p><strong>{{.OwnerName}}</strong> closed a deal with <strong>{{.AccountName}}</strong>.</p>
<table>
<tr><td>Amount</td><td>{{.Amount}}</td></tr>
<tr><td>Closed at</td><td>{{.ClosedAt}}</td></tr>
<tr><td>Description</td><td>{{.Description}}</td></tr>
</table>
</body></html>`))

// DealWonData fills the deal-won notification.
type DealWonData struct {
	ManagerName string
	OwnerName   string
	AccountName string
	Amount      string
	ClosedAt    string
	Description string
}

// RenderDealWon renders the HTML body of the deal-won notification.
func RenderDealWon(data DealWonData) (string, error) {
	var buf bytes.Buffer
	if err := dealWonTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render deal won mail: %w", err)
	}
	return buf.String(), nil
}
