package agents

import (
	"fmt"
	"strings"
)

// StrategyMarker separates the risk assessment from the strategy advice in the
// synthesis response.
const StrategyMarker = "STRATEGY:"

// RiskMarker optionally opens the synthesis response.
const RiskMarker = "RISK ASSESSMENT:"

const fundamentalsSystem = `You are a Senior Financial Data Analyst at a top-tier investment bank.
Your goal is a rigorous quantitative analysis of the ticker below that answers the user's question.

The following data has been compiled for you:
%s

Focus on:
1. Valuation Analysis: compare P/E, PEG and EV/EBITDA with history or market benchmarks. Is the stock cheap or expensive?
2. Financial Health: gross and operating margins, revenue and earnings growth, balance sheet strength.
3. Analyst Consensus: summarize the market view (target price, rating).

Explain the numbers rather than listing them. Structure the report as:
- **Direct Answer to User**
- **Valuation Verdict**: undervalued / fair / overvalued, with evidence.
- **Quality Score**: high / medium / low, based on margins and ROE.
- **Growth Outlook**: strong / moderate / weak.

Write the report in %s.`

const newsSystem = `You are a Financial News Analyst. From the raw search results provided, synthesize the most relevant news, earnings reports and market sentiment.

Focus on:
1. The key catalysts and how the market reacted.
2. Any material non-financial risks such as regulatory or legal issues.

Structure the report as:
- **Key Catalysts**: the 1-3 most important recent events.
- **Sentiment Summary**: a short paragraph on the market tone (positive / negative / neutral).
- **Non-Financial Risks**: regulatory or political risks.

Write the report in %s.`

const technicalsPrompt = `You are the Technical Analysis Specialist. Analyze the indicator calculations and recent K-line data for %s to identify chart patterns and market trends.

Your report must contain two sections:
1. **Indicator Interpretation**: assess RSI, MACD histogram and the stochastic oscillator for momentum and overbought/oversold conditions.
2. **Trend & Pattern**: name one clear pattern (for example double bottom or consolidation range) and the primary price trend (up, down or sideways).

Produce a structured markdown report written in %s.

---
**Raw Technical Indicator Calculation Results:**
%s
**Recent K-line Data Snapshot (Last 5 Days):**
%s`

const synthesisSystem = `You are the Chief Investment Strategist and Risk Manager at a major investment fund.
Combine the reports from the fundamentals analyst, the news analyst and the technical specialist into one final, actionable strategy that answers the user's question.

Some inputs may be marked [DATA UNAVAILABLE] or [SKIPPED]; state which conclusions are weakened by the missing input.

Respond in two parts, each starting on its own line with the exact marker shown:
` + RiskMarker + `
Overall risks: downside risks (regulatory, competitive) and technical volatility. If the stock is priced for perfection, call that out as the main risk.
` + StrategyMarker + `
1. **Strategy Advice**: a clear call (bullish/buy, bearish/sell, or hold/wait) with reasons, resolving any conflict between fundamental and technical signals.
2. **Actionable Parameters**: concrete Entry, Stop Loss (SL) and Take Profit (TP) price levels for a short-term trade, based on the technical report.

Be prudent. Write both parts in %s, keeping the markers in English.`

const editorSystem = `You are the Chief Editor of a prestigious investment research firm.
The full memo already contains the fundamental, technical, news and risk sections. Write only its opening section, Executive Summary & Strategy, in markdown:
- **Direct Answer**: one narrative paragraph that answers the user's question.
- **Rating & Target**: a rating (Buy / Hold / Sell) and a target price.
- **Integrated Strategy**: the core investment thesis combining fundamentals and technicals.

Style: authoritative, professional and decisive; every claim backed by data from the inputs. Do not add other headings. Write in %s.`

func fundamentalsUserPrompt(symbol, query string) string {
	return fmt.Sprintf("Based on the data provided, analyze the core financial health and valuation of %s to answer the user's question: %s", symbol, query)
}

func newsUserPrompt(results string) string {
	return fmt.Sprintf("Search Results:\n---\n%s\n---\nSynthesize this information into the report.", results)
}

func synthesisUserPrompt(query, fundamentals, news, technicals string) string {
	return fmt.Sprintf(`User Query:
%s

--- ALL RESEARCH REPORTS ---

1. Fundamental Analysis:
%s

2. News Analysis:
%s

3. Technical Analysis:
%s

Provide your integrated investment strategy and a detailed risk assessment.`, query, fundamentals, news, technicals)
}

func editorUserPrompt(query, fundamentals, news, technicals, strategy string) string {
	return fmt.Sprintf(`User Query:
%s

Fundamental Analysis:
%s

News Analysis:
%s

Technical Analysis:
%s

Strategy Advice & Risks:
%s

Write the executive summary.`, query, fundamentals, news, technicals, strategy)
}

// splitSynthesis separates a synthesis response into risk assessment and
// strategy advice. Without the strategy marker the whole text serves as both.
func splitSynthesis(text string) (risk, strategy string) {
	text = strings.TrimSpace(text)
	idx := strings.Index(text, StrategyMarker)
	if idx < 0 {
		return text, text
	}

	risk = strings.TrimSpace(text[:idx])
	risk = strings.TrimSpace(strings.TrimPrefix(risk, RiskMarker))
	strategy = strings.TrimSpace(text[idx+len(StrategyMarker):])

	if risk == "" {
		risk = strategy
	}
	if strategy == "" {
		strategy = risk
	}
	return risk, strategy
}
