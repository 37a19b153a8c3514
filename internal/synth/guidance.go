package synth

// buildESpeakInstallGuidance provides instructions for installing the
// espeak family of engines.
func buildESpeakInstallGuidance() string {
	return `espeak-ng is not installed. To install:

# Ubuntu/Debian
sudo apt install espeak-ng

# Arch Linux
sudo pacman -S espeak-ng

# Fedora
sudo dnf install espeak-ng

# macOS (Homebrew)
brew install espeak-ng

The legacy espeak package also works:
  sudo apt install espeak

espeak-ng is fully offline and needs no voice downloads for English.`
}

// buildFestivalInstallGuidance provides instructions for installing
// festival.
func buildFestivalInstallGuidance() string {
	return `festival is not installed. To install:

# Ubuntu/Debian
sudo apt install festival

# Arch Linux
sudo pacman -S festival festival-english

# Fedora
sudo dnf install festival

festival is the fallback engine; espeak-ng gives better control over
speed and pitch:
  sudo apt install espeak-ng`
}
