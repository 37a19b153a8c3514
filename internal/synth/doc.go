// Package synth drives external text-to-speech engines. It shells out
// to espeak-ng, espeak or festival, probing for the first one installed
// and demoting engines that stop working mid-run, so a conversion
// finishes on whatever synthesizer the machine actually has.
package synth
