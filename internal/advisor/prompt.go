package advisor

import (
	"fmt"
	"strings"
	"time"

	"github.com/watson9049/billygold-website/internal/domain"
)

const consultantBrief = `You are the gold consultant of a Taiwanese jewelry store. You help customers with gold purchases, jewelry care and the way retail gold prices are set.

Your topics:
- How the retail price of gold jewelry is calculated: international spot price in USD per troy ounce, converted to TWD per tael (3.75 g), plus a fixed workmanship fee.
- Choosing gold bars and jewelry, and keeping them in good condition.
- Reading the spot price trend for gold, silver, platinum and copper.
- Authenticity checks and long-term holding.

Rules:
- Answer in Traditional Chinese, friendly and concise.
- Quote prices only from the live data below. If a price is marked fallback, say it is an estimate while the live feed is unavailable.
- Never invent prices or promise returns. Remind the customer that investing carries risk when giving investment opinions.
- Keep answers short enough to read in a chat window.`

func BuildSystemPrompt(marketContext string) string {
	var sb strings.Builder
	sb.WriteString(consultantBrief)
	sb.WriteString("\n\n--- LIVE PRICES (as of ")
	sb.WriteString(time.Now().UTC().Format(time.RFC822))
	sb.WriteString(") ---\n")
	sb.WriteString(marketContext)
	return sb.String()
}

func FormatMarketContext(current domain.CurrentGoldPrice, metals []domain.MetalPriceSnapshot) string {
	var sb strings.Builder

	if current.Gold.Value > 0 && current.ExchangeRate.Value > 0 {
		sb.WriteString("\nGold retail basis:\n")
		sb.WriteString(fmt.Sprintf("  spot: $%.2f/oz (%s)\n", current.Gold.Value, current.Gold.Source))
		sb.WriteString(fmt.Sprintf("  USD/TWD: %.4f (%s)\n", current.ExchangeRate.Value, current.ExchangeRate.Source))
		sb.WriteString(fmt.Sprintf("  per tael: NT$%.2f before workmanship\n", current.PricePerTaelTWD))
	}

	if len(metals) > 0 {
		sb.WriteString("\nSpot prices:\n")
		for _, m := range metals {
			sb.WriteString(fmt.Sprintf("  %s: $%.2f (%+.2f%% vs reference, %s)\n",
				m.Kind, m.Price, m.ChangePercent, m.Source))
		}
	}

	if sb.Len() == 0 {
		return "No price data currently available."
	}
	return sb.String()
}
