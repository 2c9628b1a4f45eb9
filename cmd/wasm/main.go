//go:build js && wasm
// +build js,wasm

package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"
	"syscall/js"

	"github.com/MeKo-Tech/woodgrain/internal/encode"
	"github.com/MeKo-Tech/woodgrain/internal/finish"
	"github.com/MeKo-Tech/woodgrain/internal/wood"
)

// GenerateRequest represents a texture request from JS
type GenerateRequest struct {
	Profile     string  `json:"profile"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	LengthScale float64 `json:"lengthScale"`
	OffsetStdev float64 `json:"offsetStdev"`
	Seed        int64   `json:"seed"`
	Pores       float64 `json:"pores"`
}

// generateTexture renders a PNG entirely in the browser and returns it as a
// data URL. Missing fields fall back to the CLI defaults.
func generateTexture(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return map[string]interface{}{"error": "missing arguments"}
	}

	req := GenerateRequest{Profile: "neutral", Width: 256, Height: 256}
	if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
		return map[string]interface{}{"error": fmt.Sprintf("failed to parse request: %v", err)}
	}

	params := wood.DefaultParams(req.Width, req.Height)
	if req.LengthScale != 0 {
		params.LengthScale = req.LengthScale
	}
	if req.OffsetStdev != 0 {
		params.OffsetStdDev = req.OffsetStdev
	}
	p, ok := wood.LookupProfile(req.Profile)
	if !ok {
		return map[string]interface{}{"error": fmt.Sprintf("unknown profile %q", req.Profile)}
	}
	params.Profile = p

	seed := req.Seed
	if seed == 0 {
		seed = rand.Int63() + 1
	}

	img, err := wood.Generate(params, rand.New(rand.NewSource(seed)))
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	img = finish.Apply(img, finish.Options{PoreStrength: req.Pores, Seed: seed})

	data, err := encode.Bytes(img, encode.PNG, encode.Options{PNGCompression: "speed"})
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	return map[string]interface{}{
		"dataUrl": "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
		"seed":    fmt.Sprint(seed),
	}
}

func listProfiles(this js.Value, args []js.Value) interface{} {
	names := wood.PresetNames()
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

func main() {
	c := make(chan struct{})

	js.Global().Set("woodgrainGenerate", js.FuncOf(generateTexture))
	js.Global().Set("woodgrainProfiles", js.FuncOf(listProfiles))

	fmt.Println("Woodgrain WASM module loaded")
	<-c
}
