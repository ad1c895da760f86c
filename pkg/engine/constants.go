package engine

// MaxDepth is the deepest search any request may ask for
const MaxDepth = 6

// Depth bonuses of the adaptive depth policy
const (
	fewPiecesThreshold     = 8
	endgamePiecesThreshold = 12
	decisiveEval           = 3.0
	unpredictableThreshold = 0.6
)

// Personality: candidate window around the best root score, in pawns
const (
	baseTolerance        = 0.15
	unpredictableBonus   = 0.25
	unpredictableTrigger = 0.5
	quietBonus           = 0.15
	quietEval            = 1.0
	sharpEval            = 2.0
)

// Style analysis
const (
	styleWindow       = 10
	styleMinMoves     = 6
	styleDefault      = 0.3
	styleCapture      = 0.10
	styleCheck        = 0.15
	styleLongNotation = 0.05
	longNotationLen   = 4
)

// Thinking time, milliseconds
const (
	thinkBase          = 1200
	thinkPerMissing    = 25
	thinkPerPly        = 150
	thinkDecisiveBonus = 400
	thinkUnpredictable = 250
	thinkMin           = 600
	thinkMax           = 3500
)

// Move ordering scores, larger is searched first
const (
	orderCacheMove = 1000000
	orderCapture   = 100000
	orderCheck     = 50000
	orderPromotion = 10000
	orderCastle    = 1000
)

// pvLength caps the expected line reported with a result
const pvLength = 8
