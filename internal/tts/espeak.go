package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static int
vecna_say(const char *text, const char *voice, int rate)
{
	if (!text)
	{ return -1; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -2; }

	espeak_VOICE specs = { 0 };
	specs.languages = voice;
	espeak_SetVoiceByProperties(&specs);
	if (rate > 0)
	{ espeak_SetParameter(espeakRATE, rate, 0); }

	espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"
)

// espeak keeps global state, one utterance at a time.
var speakMu sync.Mutex

// ESpeak speaks through espeak-ng and returns once playback has finished.
type ESpeak struct {
	voice string
	rate  int
}

// NewESpeak takes an espeak language such as "en" or "ru"; rate is words
// per minute, 0 keeps the voice default.
func NewESpeak(voice string, rate int) *ESpeak {
	if voice == "" {
		voice = "en"
	}
	return &ESpeak{voice: voice, rate: rate}
}

func (e *ESpeak) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	cvoice := C.CString(e.voice)
	defer C.free(unsafe.Pointer(cvoice))

	speakMu.Lock()
	rc := C.vecna_say(ctext, cvoice, C.int(e.rate))
	speakMu.Unlock()

	if rc != 0 {
		return fmt.Errorf("espeak failed: %d", int(rc))
	}
	return nil
}
