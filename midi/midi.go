package midi

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"midislicer/timeline"

	"gitlab.com/gomidi/midi/v2/smf"
)

func ReadMidiFile(filepath string) (s *smf.SMF, e error) {
	var blank smf.SMF
	var err error

	// handle panics
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r, ok := recover().(string); ok {
			e = errors.New(r)
		}
	}()

	dat, err := os.ReadFile(filepath)

	if err != nil {
		errText := fmt.Sprintf("Error reading midi file... %s", err.Error())
		return &blank, errors.New(errText)
	}
	res, err := smf.ReadFrom(bytes.NewReader(dat))

	if err != nil {
		errText := fmt.Sprintf("Error parsing midi file... %s", err.Error())
		return &blank, errors.New(errText)
	}

	return res, nil
}

// ReadTimeline reads a file straight into the absolute-tick model.
func ReadTimeline(filepath string) (*timeline.Timeline, error) {
	s, err := ReadMidiFile(filepath)
	if err != nil {
		return nil, err
	}
	return timeline.FromSMF(s), nil
}

func WriteTimeline(tl *timeline.Timeline, filepath string) error {
	var buf bytes.Buffer
	if _, err := tl.ToSMF().WriteTo(&buf); err != nil {
		return fmt.Errorf("Error encoding midi file... %s", err.Error())
	}
	if err := os.WriteFile(filepath, buf.Bytes(), 0777); err != nil {
		return fmt.Errorf("Error writing midi file... %s", err.Error())
	}
	return nil
}
