// Package capture delivers frames to the brightness alarm.
//
// A Source owns device selection and session lifecycle and calls a Handler once
// per frame, serially and in capture order. A BrightnessExtractor turns a frame
// into an alarm.Reading without the alarm knowing the metadata schema.
package capture
