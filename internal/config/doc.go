// Package config loads and validates fieldline configuration from TOML.
//
// Configuration resolution order: explicit path argument, then
// ~/.config/fieldline/config.toml, then fieldline.toml in the working
// directory. Missing files fall back to defaults.
package config
