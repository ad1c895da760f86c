package engine

import (
	"math"
	"strings"

	"github.com/notnil/chess"

	"muninn/pkg/eval"
)

// AnalyzeStyle scores how wild the opponent's recent play has been, from 0
// (quiet) to 1 (sharp). Only the last ten moves count and fewer than six moves
// give a neutral default.
func AnalyzeStyle(recent []string) float64 {
	if len(recent) > styleWindow {
		recent = recent[len(recent)-styleWindow:]
	}
	if len(recent) < styleMinMoves {
		return styleDefault
	}
	score := 0.0
	for _, san := range recent {
		if strings.Contains(san, "x") {
			score += styleCapture
		}
		if strings.ContainsAny(san, "+#") {
			score += styleCheck
		}
		if len(san) > longNotationLen {
			score += styleLongNotation
		}
	}
	return clamp(score, 0, 1)
}

// SelectDepth picks the search depth for one request
func SelectDepth(d Difficulty, pieceCount int, staticEval, unpredictability float64, maxDepth int) int {
	depth := d.BaseDepth()
	switch {
	case pieceCount <= fewPiecesThreshold:
		depth += 2
	case pieceCount <= endgamePiecesThreshold && abs(staticEval) > decisiveEval:
		depth++
	}
	if unpredictability > unpredictableThreshold {
		depth++
	}
	if maxDepth <= 0 || maxDepth > MaxDepth {
		maxDepth = MaxDepth
	}
	return min(depth, maxDepth)
}

// EstimateThinkingTime returns how long the engine should appear to think, in
// milliseconds. It is presentation only and never limits the search.
func EstimateThinkingTime(pieceCount, depth int, evalMagnitude, unpredictability float64) int {
	ms := float64(thinkBase + (32-pieceCount)*thinkPerMissing + depth*thinkPerPly)
	if evalMagnitude > decisiveEval {
		ms += thinkDecisiveBonus
	}
	ms += unpredictability * thinkUnpredictable
	return int(clamp(math.Round(ms), thinkMin, thinkMax))
}

// labelInput is what AnalysisLabel looks at
type labelInput struct {
	fromBook   bool
	mate       bool
	pieceCount int
	move       *chess.Move
	evaluation float64
}

// AnalysisLabel returns a short phrase describing what the engine was doing.
// It is cosmetic.
func AnalysisLabel(in labelInput) string {
	switch {
	case in.fromBook:
		return "Recalling opening theory…"
	case in.mate || eval.IsMate(in.evaluation):
		return "Spotted a forced mate…"
	case in.pieceCount <= endgamePiecesThreshold:
		return "Calculating endgame sequences…"
	case in.move != nil && (in.move.HasTag(chess.Capture) || in.move.HasTag(chess.EnPassant)):
		return "Evaluating material exchange…"
	case in.move != nil && in.move.HasTag(chess.Check):
		return "Calculating forcing lines…"
	case in.move != nil && (in.move.HasTag(chess.KingSideCastle) || in.move.HasTag(chess.QueenSideCastle)):
		return "Securing king safety…"
	case abs(in.evaluation) > decisiveEval:
		return "Pressing a decisive advantage…"
	}
	return "Weighing positional plans…"
}
