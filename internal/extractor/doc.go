// Package extractor resolves streaming-video page URLs into direct download
// URLs by running yt-dlp in metadata-dump mode and selecting a format.
//
// The best quality prefers a separable video-only mp4 plus audio-only m4a
// pair that is later merged with ffmpeg; when no clean pair exists it falls
// back to the best pre-muxed mp4. The resolver never talks to the download
// daemon.
package extractor
