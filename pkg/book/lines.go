package book

// Line is a weighted sequence of SAN moves from the initial position. Every
// position along the line gets the next move added with the line's weight.
type Line struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
	Moves  string `json:"moves"`
}

// DefaultLines is the repertoire used when no book file is configured
var DefaultLines = []Line{
	// 1.e4
	{Name: "Ruy Lopez", Weight: 12, Moves: "e4 e5 Nf3 Nc6 Bb5 a6 Ba4 Nf6 O-O Be7"},
	{Name: "Italian Game", Weight: 8, Moves: "e4 e5 Nf3 Nc6 Bc4 Bc5 c3 Nf6 d3"},
	{Name: "Sicilian Defense", Weight: 12, Moves: "e4 c5 Nf3 d6 d4 cxd4 Nxd4 Nf6 Nc3 a6"},
	{Name: "French Defense", Weight: 6, Moves: "e4 e6 d4 d5 Nc3 Nf6"},
	{Name: "Caro-Kann Defense", Weight: 7, Moves: "e4 c6 d4 d5 Nc3 dxe4 Nxe4 Bf5"},
	// 1.d4
	{Name: "Queen's Gambit Declined", Weight: 12, Moves: "d4 d5 c4 e6 Nc3 Nf6 Bg5 Be7"},
	{Name: "Slav Defense", Weight: 6, Moves: "d4 d5 c4 c6 Nf3 Nf6"},
	{Name: "King's Indian Defense", Weight: 10, Moves: "d4 Nf6 c4 g6 Nc3 Bg7 e4 d6 Nf3 O-O"},
	{Name: "Nimzo-Indian Defense", Weight: 7, Moves: "d4 Nf6 c4 e6 Nc3 Bb4 e3 O-O"},
	// flank openings
	{Name: "English Opening", Weight: 10, Moves: "c4 e5 Nc3 Nf6 g3 d5 cxd5 Nxd5"},
	{Name: "Reti Opening", Weight: 6, Moves: "Nf3 d5 g3 Nf6 Bg2 e6 O-O"},
	{Name: "Reti Opening", Weight: 4, Moves: "Nf3 Nf6 c4 e6 Nc3 d5 d4"},
}
