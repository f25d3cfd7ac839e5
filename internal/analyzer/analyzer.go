// Package analyzer implements the rendered-line heuristic classifier: a
// single-threaded, stateful scan over a sequence of rendered log lines that
// distills a fixed set of latched booleans into a structured JSON summary
// (process type, detected engines/SDKs, platform hints, firmware modules).
//
// The same classifier backs both frontends this repo has (P7D and PLOG).
// The missing-symbol label and the "-> client shutdown request"
// short-circuit come from the PLOG tool; the classifier does not know which
// frontend a line came from, so it applies them to P7D lines as well.
package analyzer

import (
	"encoding/json"
	"strings"
)

// LineContext is the small piece of framing each frontend resolves before
// handing a rendered line to the classifier: which module emitted it, and
// whether it arrived on the tty stream.
type LineContext struct {
	ModuleName string
	IsTTY      bool
}

// ChildDocument is the analyzer document shape for a child process (a
// title's emulated process, detected by process name or PLOG's "child
// process" literal).
type ChildDocument struct {
	Type     string   `json:"type"`
	Labels   []string `json:"labels"`
	Firmware []string `json:"firmware"`
	Hints    []string `json:"hints"`

	EmuNeo        bool `json:"emu_neo"`
	EmuSkipAjm    bool `json:"emu_skipAjm"`
	EmuSkipMovies bool `json:"emu_skipMovies"`
	EmuNetworking bool `json:"emu_networking"`
	EmuNoElfCheck bool `json:"emu_noElfCheck"`

	TitleName string `json:"title_name"`
	TitleID   string `json:"title_id"`
	TitleNeo  bool   `json:"title_neo"`
}

func newChildDocument() *ChildDocument {
	return &ChildDocument{
		Type:      "child-process",
		Labels:    []string{},
		Firmware:  []string{},
		Hints:     []string{},
		TitleName: "Unnamed",
		TitleID:   "CUSA00000",
	}
}

// MainDocument is the analyzer document shape for the emulator's own
// (main) process.
type MainDocument struct {
	Type     string   `json:"type"`
	Labels   []string `json:"labels"`
	Hints    []string `json:"hints"`
	UserGPU  string   `json:"user-gpu"`
	UserLang string   `json:"user-lang"`
}

func newMainDocument() *MainDocument {
	return &MainDocument{
		Type:     "main-process",
		Labels:   []string{},
		Hints:    []string{},
		UserGPU:  "UNDETECTED",
		UserLang: "UNDETECTED",
	}
}

// Analyzer is the streaming classifier. New returns its zero value, which is
// ready to use.
type Analyzer struct {
	guessed bool
	child   bool
	stopped bool

	childDoc *ChildDocument
	mainDoc  *MainDocument

	// Child-process latched flags.
	engineUnity, engineUnreal, engineCry, enginePhyre       bool
	engineGamemaker, engineNaughty, engineIrrlicht          bool
	exception                                               bool
	sdkFmod, sdkMono, sdkCriware, sdkHavok, sdkWwise         bool
	missingSymbol                                           bool
	hintAjmFoundFlag                                         bool
	hintTrophyKeyFlag                                        bool
	hintAndnPatched, hintExtrqPatched, hintInsertqPatched    bool
	netStuffDetected                                         bool // latched but never surfaced, mirrors the original's dead flag

	// Main-process latched flags.
	gpuPicked      bool
	nvidiaHint     bool
	inputNotFound  bool
	shaderGenTodo  bool
	vkValidation   bool
	vkNoDevices    bool
}

// New returns a classifier with no process type guessed yet.
func New() *Analyzer {
	return &Analyzer{}
}

// Guessed reports whether the process type has already been latched.
func (a *Analyzer) Guessed() bool {
	return a.guessed
}

// Guess latches the process type exactly once; subsequent calls are no-ops.
// Frontends decide isChild their own way (P7D: decoded process name equals
// "psOff_tunnel.exe"; PLOG: first non-empty message equals "child process").
func (a *Analyzer) Guess(isChild bool) {
	if a.guessed {
		return
	}
	a.guessed = true
	a.child = isChild
	if isChild {
		a.childDoc = newChildDocument()
	} else {
		a.mainDoc = newMainDocument()
	}
}

// Process classifies one rendered line. It returns false when the
// classifier wants the caller to stop feeding it further lines (a child
// process's Kernel module logged "-> client shutdown request", whichever
// frontend delivered it); until then it returns true.
func (a *Analyzer) Process(ctx LineContext, text string) bool {
	if a.stopped {
		return false
	}
	if !a.guessed {
		// Frontend bug: Process called before Guess. Treat defensively as
		// main-process rather than panic on a nil document.
		a.Guess(false)
	}

	if a.child {
		a.processChild(ctx, text)
	} else {
		a.processMain(ctx, text)
	}
	return !a.stopped
}

func (a *Analyzer) processChild(ctx LineContext, text string) {
	if ctx.IsTTY {
		a.processChildTTY(text)
		return
	}

	if strings.HasPrefix(text, "todo ") {
		if strings.HasPrefix(text, "todo sceNp") {
			a.netStuffDetected = true
		}
		return
	}

	switch ctx.ModuleName {
	case "pthread":
		if strings.HasPrefix(text, "--> thread") {
			if !a.engineUnity && (strings.Contains(text, "UnityWorker") || strings.Contains(text, "UnityGfx")) {
				a.engineUnity = true
			}
			if !a.sdkCriware && (strings.Contains(text, "CriThread") || strings.Contains(text, "CRI FS")) {
				a.sdkCriware = true
			}
			if !a.sdkWwise && (strings.Contains(text, "Wwise") || strings.Contains(text, "AK::LibAudioOut")) {
				a.sdkWwise = true
			}
			if !a.enginePhyre && strings.Contains(text, "PhyreEngine") {
				a.enginePhyre = true
			}
			if !a.sdkFmod && strings.Contains(text, "FMOD mixer") {
				a.sdkFmod = true
			}
			if !a.sdkHavok && strings.Contains(text, "HavokWorkerThread") {
				a.sdkHavok = true
			}
		}

	case "libSceKernel":
		if !a.sdkMono && (strings.Contains(text, `.mono\config`) || strings.Contains(text, ".mono/config")) {
			a.sdkMono = true
		}
		if !a.engineUnity && strings.Contains(text, "unity default resources") {
			a.engineUnity = true
		}
		if !a.engineUnreal && strings.Contains(text, "UE3_logo.") {
			a.engineUnreal = true
		}

	case "runtime":
		if strings.Contains(text, "Missing Symbol|") {
			a.missingSymbol = true
		}

	case "Kernel":
		if text == "-> client shutdown request" {
			a.stopped = true
			return
		}
		if strings.HasPrefix(text, "psOff.") {
			a.applyKernelConfig(text)
		}

	case "ExceptionHandler":
		if !a.exception && strings.HasPrefix(text, "Faulty instruction:") {
			a.exception = true
		}

	case "libSceSysmodule":
		if strings.HasPrefix(text, "loading id = ") && strings.Contains(text, "Dialog") {
			// Dialog SDK detection has no labels/hints slot in the spec's
			// fixed string table; the signal is recorded on the original
			// but not surfaced in any emitted field.
		}

	case "libSceNpTrophy":
		if text == "Missing trophy key!" {
			a.hintTrophyKeyFlag = true
		}

	case "elf_loader":
		if !a.engineUnity && strings.Contains(text, "Il2CppUserAssemblies") {
			a.engineUnity = true
		}
		if strings.HasPrefix(text, "load library[") && strings.HasSuffix(text, ".sprx") {
			path := text
			if eq := strings.Index(text, "= "); eq >= 0 {
				path = text[eq+2:]
			}
			a.childDoc.Firmware = append(a.childDoc.Firmware, basename(path))
		}

	case "patcher":
		if strings.HasPrefix(text, "Applying ") && strings.HasSuffix(text, " patch") {
			if !a.hintAndnPatched && strings.Contains(text, "ANDN") {
				a.hintAndnPatched = true
			}
			if !a.hintInsertqPatched && strings.Contains(text, "INSERTQ") {
				a.hintInsertqPatched = true
			}
			if !a.hintExtrqPatched && strings.Contains(text, "EXTRQ") {
				a.hintExtrqPatched = true
			}
		}

	case "Ajm::Instance":
		a.hintAjmFoundFlag = true
	}
}

func (a *Analyzer) processChildTTY(text string) {
	if !a.engineGamemaker && strings.Contains(text, "YoYo Games PS4 Runner") {
		a.engineGamemaker = true
	}
	if !a.engineIrrlicht && strings.Contains(text, "Irrlicht Engine") {
		a.engineIrrlicht = true
	}
	if !a.engineUnreal && strings.HasPrefix(text, "Additional") && strings.Contains(text, ".uproject") {
		a.engineUnreal = true
	}
	if !a.engineUnreal && strings.Contains(text, "uecommandline.txt") {
		a.engineUnreal = true
	}
	if !a.engineNaughty && strings.Contains(text, "ND File Server") {
		a.engineNaughty = true
	}
	if !a.engineNaughty && strings.Contains(text, "----- Switching world: from") {
		a.engineNaughty = true
	}
}

// applyKernelConfig parses a "psOff.KEY = VALUE" rendered line. The value is
// the substring starting two bytes after the first '='.
func (a *Analyzer) applyKernelConfig(text string) {
	eq := strings.IndexByte(text, '=')
	if eq < 0 || eq+2 > len(text) {
		return
	}
	value := text[eq+2:]

	switch {
	case strings.Contains(text, ".isNeo = "):
		a.childDoc.EmuNeo = value == "1"
	case strings.Contains(text, ".skipAJM = "):
		a.childDoc.EmuSkipAjm = value == "1"
	case strings.Contains(text, ".skipMovies = "):
		a.childDoc.EmuSkipMovies = value == "1"
	case strings.Contains(text, ".networking = "):
		a.childDoc.EmuNetworking = value == "1"
	case strings.Contains(text, ".noElfCheck = "):
		a.childDoc.EmuNoElfCheck = value == "1"
	case strings.Contains(text, ".app.neoSupport = "):
		a.childDoc.TitleNeo = value == "1"
	case strings.Contains(text, ".app.id = "):
		a.childDoc.TitleID = value
	case strings.Contains(text, ".app.title = "):
		a.childDoc.TitleName = value
	}
}

func (a *Analyzer) processMain(ctx LineContext, text string) {
	if idx := strings.Index(text, "Language switched to "); idx >= 0 {
		if at := strings.Index(text, " to "); at >= 0 {
			a.mainDoc.UserLang = text[at+4:]
		}
	}
	if !a.gpuPicked && strings.Contains(text, "Selected GPU:") {
		a.gpuPicked = true
		a.nvidiaHint = strings.Contains(text, "NVIDIA") || strings.Contains(text, "nvidia")
		if colon := strings.IndexByte(text, ':'); colon >= 0 {
			a.mainDoc.UserGPU = text[colon+1:]
		}
	}
	if !a.inputNotFound && strings.Contains(text, "No pad with specified name was found") {
		a.inputNotFound = true
	}

	switch ctx.ModuleName {
	case "sb2spirv":
		if !a.shaderGenTodo && (strings.Contains(text, "todo") || strings.Contains(text, "Instruction missing")) {
			a.shaderGenTodo = true
		}
	case "videoout":
		if !a.vkValidation && strings.Contains(text, "Validation Error: ") {
			a.vkValidation = true
		}
		if !a.vkNoDevices && text == "Failed to find any suitable Vulkan device" {
			a.vkNoDevices = true
		}
	}
}

// Finalize materializes latched flags into the document's labels/hints
// arrays in a fixed order (the declaration order of the label and hint
// constants in strings.go, with the combined cpu-patched hint placed
// between ajm-found and trophy-key), then returns
// the pretty-printed (2-space indent) JSON document.
func (a *Analyzer) Finalize() ([]byte, error) {
	if !a.guessed {
		a.Guess(false)
	}

	if a.child {
		a.finalizeChild()
		return json.MarshalIndent(a.childDoc, "", "  ")
	}
	a.finalizeMain()
	return json.MarshalIndent(a.mainDoc, "", "  ")
}

func (a *Analyzer) finalizeChild() {
	d := a.childDoc
	if a.engineUnity {
		d.Labels = append(d.Labels, labelEngineUnity)
	}
	if a.engineUnreal {
		d.Labels = append(d.Labels, labelEngineUnreal)
	}
	if a.engineCry {
		d.Labels = append(d.Labels, labelEngineCry)
	}
	if a.enginePhyre {
		d.Labels = append(d.Labels, labelEnginePhyre)
	}
	if a.engineGamemaker {
		d.Labels = append(d.Labels, labelEngineGamemaker)
	}
	if a.engineNaughty {
		d.Labels = append(d.Labels, labelEngineNaughty)
	}
	if a.engineIrrlicht {
		d.Labels = append(d.Labels, labelEngineIrrlicht)
	}
	if a.exception {
		d.Labels = append(d.Labels, labelException)
	}
	if a.sdkFmod {
		d.Labels = append(d.Labels, labelSdkFmod)
	}
	if a.sdkMono {
		d.Labels = append(d.Labels, labelSdkMono)
	}
	if a.sdkCriware {
		d.Labels = append(d.Labels, labelSdkCriware)
	}
	if a.sdkHavok {
		d.Labels = append(d.Labels, labelSdkHavok)
	}
	if a.sdkWwise {
		d.Labels = append(d.Labels, labelSdkWwise)
	}
	if a.missingSymbol {
		d.Labels = append(d.Labels, labelMissingSymbol)
	}

	if a.hintAjmFoundFlag {
		d.Hints = append(d.Hints, hintAjmFound)
	}
	if h := cpuPatchedHint(a.hintAndnPatched, a.hintExtrqPatched, a.hintInsertqPatched); h != "" {
		d.Hints = append(d.Hints, h)
	}
	if a.hintTrophyKeyFlag {
		d.Hints = append(d.Hints, hintTrophyKey)
	}
}

func (a *Analyzer) finalizeMain() {
	d := a.mainDoc
	if a.vkValidation {
		d.Labels = append(d.Labels, labelGraphics)
	}
	if a.shaderGenTodo {
		d.Labels = append(d.Labels, labelShaderGen)
	}
	if a.vkNoDevices {
		d.Labels = append(d.Labels, labelBadGpu)
	}

	if a.inputNotFound {
		d.Hints = append(d.Hints, hintInputNotFound)
	}
	if a.nvidiaHint {
		d.Hints = append(d.Hints, hintNvidia)
	}
	if a.vkNoDevices {
		d.Hints = append(d.Hints, hintBadGpu)
	}
}

// basename returns the substring after the last '\' or '/' separator, or
// the whole string if neither appears.
func basename(path string) string {
	if i := strings.LastIndexAny(path, `\/`); i >= 0 {
		return path[i+1:]
	}
	return path
}
