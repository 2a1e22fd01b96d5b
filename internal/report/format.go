package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/risk"
)

const timestampLayout = "2006-01-02 15:04:05"

// SignalInput is everything needed to describe one analyzed symbol.
type SignalInput struct {
	Result domain.SignalResult
	Closes []float64 // close prices of the analyzed series, oldest first
	Amount float64   // invested amount; zero omits the investment lines
}

// Headline returns the label line of a signal message.
func Headline(label domain.SignalLabel) string {
	switch label {
	case domain.LabelBuy:
		return "BUY signal"
	case domain.LabelSell:
		return "SELL signal"
	default:
		return "NEUTRAL signal"
	}
}

// SignalMessage renders the text report for one symbol.
func SignalMessage(in SignalInput) string {
	res := in.Result
	snap := res.Snapshot
	sc := res.Strategy

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s for %s (timeframe %s)\n", Headline(res.Label), res.Symbol, res.Timeframe)
	fmt.Fprintf(&sb, "Score: %.2f\n\n", res.Score)

	if res.Label == domain.LabelNeutral {
		sb.WriteString("The market is undecided and no clear signal was issued.\n")
		fmt.Fprintf(&sb, "\nEstimate: neutral conditions likely to last about %s.\n", formatDuration(NeutralDuration(snap)))
	} else {
		sb.WriteString("Reasons:\n")
		if sc.UseEMA {
			if res.Conditions.EMATrend {
				sb.WriteString("- EMA50 above EMA200: uptrend\n")
			} else {
				sb.WriteString("- EMA50 below EMA200: downtrend\n")
			}
		}
		if sc.UseRSI {
			rel := ">="
			if res.Conditions.RSIBelow {
				rel = "<"
			}
			fmt.Fprintf(&sb, "- RSI = %s %s threshold %s\n", formatValue(snap.RSI), rel, formatThreshold(sc.RSIThreshold))
		}
		if sc.UseMACD {
			rel := "<="
			if res.Conditions.MACDBullish {
				rel = ">"
			}
			fmt.Fprintf(&sb, "- MACD (%s) %s Signal (%s)\n", formatValue(snap.MACD), rel, formatValue(snap.MACDSignal))
		}

		fmt.Fprintf(&sb, "\nEntry: %s\nTarget (TP): %s\nStop (SL): %s\n",
			formatPrice(res.Entry), formatPrice(res.Target), formatPrice(res.Stop))

		if in.Amount > 0 {
			profit, loss := risk.PotentialPnL(in.Amount, res.Entry, res.Target, res.Stop)
			fmt.Fprintf(&sb, "Invested: %.2f USDT\nPotential profit: %.2f USDT\nPotential loss: %.2f USDT\n",
				in.Amount, profit, loss)
		}

		eta := TimeToTarget(in.Closes, res.Entry, res.Target, res.Timeframe)
		fmt.Fprintf(&sb, "Estimate: target reached within %s.\n", formatDuration(eta))
	}

	sb.WriteString("\nActive strategy:\n")
	fmt.Fprintf(&sb, "- EMA50: %s | EMA200: %s\n", formatValue(snap.EMA50), formatValue(snap.EMA200))
	fmt.Fprintf(&sb, "- RSI: %s (threshold: %s)\n", formatValue(snap.RSI), formatThreshold(sc.RSIThreshold))
	fmt.Fprintf(&sb, "- MACD: %s | Signal: %s\n", formatValue(snap.MACD), formatValue(snap.MACDSignal))
	fmt.Fprintf(&sb, "Analyzed at: %s", res.AnalyzedAt.Format(timestampLayout))

	return sb.String()
}

// SettingsSummary renders a user's settings.
func SettingsSummary(us domain.UserSettings) string {
	sc := us.Strategy
	var sb strings.Builder
	sb.WriteString("Current analyzer settings:\n")
	fmt.Fprintf(&sb, "- Timeframe: %s\n", us.Timeframe)
	fmt.Fprintf(&sb, "- EMA: %s (weight %.2f)\n", onOff(sc.UseEMA), sc.Weights.EMA)
	fmt.Fprintf(&sb, "- RSI: %s (weight %.2f, threshold %s)\n", onOff(sc.UseRSI), sc.Weights.RSI, formatThreshold(sc.RSIThreshold))
	fmt.Fprintf(&sb, "- MACD: %s (weight %.2f)\n", onOff(sc.UseMACD), sc.Weights.MACD)
	fmt.Fprintf(&sb, "- Take profit ratio: %g\n", sc.TPRatio)
	fmt.Fprintf(&sb, "- Stop loss ratio: %g", sc.SLRatio)
	return sb.String()
}

// GroupHeader introduces a group analysis.
func GroupHeader(timeframe string, budget float64) string {
	return fmt.Sprintf("Signals and budget allocation for timeframe %s and budget $%.2f:", timeframe, budget)
}

// GroupTotals summarizes potential outcomes across all picks.
func GroupTotals(totalProfit, totalLoss float64) string {
	return fmt.Sprintf("Total potential profit: $%.2f\nTotal potential loss: $%.2f", totalProfit, totalLoss)
}

// SkippedSummary lists symbols left out of a group analysis.
func SkippedSummary(skipped map[string]string) string {
	if len(skipped) == 0 {
		return ""
	}
	symbols := make([]string, 0, len(skipped))
	for s := range skipped {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return fmt.Sprintf("Skipped (no data): %s", strings.Join(symbols, ", "))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func formatValue(v float64) string {
	if !domain.IsDefined(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

func formatThreshold(v float64) string {
	return fmt.Sprintf("%g", v)
}

// formatPrice keeps more decimals for sub-dollar prices.
func formatPrice(v float64) string {
	if !domain.IsDefined(v) {
		return "n/a"
	}
	if math.Abs(v) < 1 {
		return fmt.Sprintf("%.6f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func formatDuration(d time.Duration) string {
	minutes := d.Minutes()
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", int(minutes))
	}
	return fmt.Sprintf("%.1f hours", minutes/60)
}
