// Package config loads and validates the cardbridge settings file.
//
// # Overview
//
// Settings are read once at startup from a TOML file and returned as an
// immutable Config value that every other component receives. Unlike most
// operator tools there are no silent defaults for the core fields: a missing
// or mistyped field stops startup, because a half-configured bridge would
// accept cards and then fail every submission.
//
// # Configuration Discovery
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/cardbridge/config.toml
//  3. Overlay CARDBRIDGE_TARGET_READER and CARDBRIDGE_URL from a dotenv file
//     (the -env flag, or .env beside the config file when present)
//
// # TOML Format
//
//	target_reader = "ACS ACR39U ICC Reader 0"
//	url = "http://10.0.0.5:8080"
//	working_dir = "C:/MyKad"
//	exec_file = "mykad.exe"
//	result_file = "mykadresult.txt"
//	image_folder = "images"
//	image_scheduler = "0 0 1 * * *"
//	keep_images = 0
//	clean_up_after_months = 3
//
//	[log]
//	dir = "~/.local/share/cardbridge/logs"
//	level = "info"
//
//	[notify]
//	mode = "desktop"          # desktop, console or none
//	icon_success = "C:/MyKad/media/team.png"
//	icon_failure = "C:/MyKad/media/close.png"
//
//	[status]
//	addr = "127.0.0.1:9105"   # empty disables the status endpoint
//
// keep_images accepts either a boolean or an integer (0 is false).
// image_scheduler accepts five fields, six fields with leading seconds, or a
// descriptor such as @daily.
//
// # Derived Values
//
//   - SubmitURL: url + "/pms/q"
//   - ResultFile: working_dir/result_file, absolute
//   - ImageDir: working_dir/image_folder
//   - LogPath: log.dir/cardbridge.log
//
// # Error Handling
//
// Every error returned by Load wraps ErrInvalid so callers can report a single
// config_invalid outcome and exit.
package config
