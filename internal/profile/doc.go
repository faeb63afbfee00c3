// Package profile loads and validates per-device IR/RF capability profiles.
//
// A profile is a JSON document keyed by numeric device code (e.g. 1080.json)
// describing one fan model: manufacturer metadata, the ordered speed levels
// the remote supports, and the command table mapping fan states to opaque
// pre-recorded signal payloads.
//
// # Profile Format
//
//	{
//	  "manufacturer": "Hunter",
//	  "supportedModels": ["Original 52"],
//	  "supportedController": "MQTT",
//	  "commandsEncoding": "Raw",
//	  "speed": ["low", "medium", "high"],
//	  "commands": {
//	    "off": "JgBGAJKV...",
//	    "oscillate": "JgBGAJtt...",
//	    "forward": {"low": "...", "medium": "...", "high": "..."},
//	    "reverse": {"low": "...", "medium": "...", "high": "..."}
//	  }
//	}
//
// Command values are either a single payload string or a list of payload
// strings sent as consecutive packets. Direction support is derived from the
// presence of both "forward" and "reverse" blocks; profiles without direction
// support key their speed commands under "default". Oscillation support is
// derived from the presence of an "oscillate" key.
//
// # Validation
//
// Profiles are validated once at load time. A profile that cannot express
// every reachable fan state (a missing speed in a direction block, a missing
// "off" command) is rejected up front so command resolution cannot fail for
// structural reasons at runtime. Resolution failures that do occur surface
// as ErrCommandNotFound, which wraps ErrInvalidProfile.
package profile
