package analyzer

// Label and hint text is reproduced verbatim from the source tool; these
// strings are user-facing and must not be reworded.
const (
	labelEngineUnity     = "engine-unity"
	labelEngineUnreal    = "engine-unreal"
	labelEngineCry       = "engine-cry"
	labelEnginePhyre     = "engine-phyre"
	labelEngineGamemaker = "engine-gamemaker"
	labelEngineNaughty   = "engine-naughty"
	labelEngineIrrlicht  = "engine-irrlicht"
	labelException       = "exception"
	labelSdkFmod         = "sdk-fmod"
	labelSdkMono         = "sdk-mono"
	labelSdkCriware      = "sdk-criware"
	labelSdkHavok        = "sdk-havok"
	labelSdkWwise        = "sdk-wwise"
	labelMissingSymbol   = "missing-symbol"
	labelGraphics        = "graphics"
	labelShaderGen       = "shader-gen"
	labelBadGpu          = "badgpu"
)

const (
	hintInputNotFound = "One of your users has the input device set incorrectly, if you can't control the PS4 app, this could be the cause."
	hintNvidia        = "You are using an NVIDIA graphics card, these cards have many issues on our emulator that may not be present on AMD cards."
	hintAjmFound      = "This game uses hardware audio encoding/decoding"
	hintBadGpu        = "Your GPU is not supported at the moment"
	hintTrophyKey     = "You don't have the trophy key installed, this can cause problems in games, also you won't be able to see the list of trophies you have received. To solve this problem, check #faq channel in on Discord Server."
)

// cpuPatchedHint assembles the combined cpu-patched hint from whichever
// patch flags are latched. Token order is fixed: ANDN, EXTRQ, INSERTQ.
func cpuPatchedHint(andn, extrq, insertq bool) string {
	if !andn && !extrq && !insertq {
		return ""
	}
	out := "Your CPU does not support some instructions ("
	if andn {
		out += "ANDN, "
	}
	if extrq {
		out += "EXTRQ, "
	}
	if insertq {
		out += "INSERTQ, "
	}
	out += ") and they have been patched"
	return out
}
