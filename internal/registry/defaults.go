// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package registry

import "github.com/mchestr/plex-maintenance-engine/internal/domain"

var (
	ordinalOps  = []domain.Operator{domain.OpEquals, domain.OpNotEquals, domain.OpGT, domain.OpGE, domain.OpLT, domain.OpLE, domain.OpBetween}
	stringOps   = []domain.Operator{domain.OpEquals, domain.OpNotEquals, domain.OpContains, domain.OpNotContains, domain.OpStartsWith, domain.OpEndsWith, domain.OpRegex, domain.OpIn, domain.OpNotIn}
	numberOps   = []domain.Operator{domain.OpEquals, domain.OpNotEquals, domain.OpGT, domain.OpGE, domain.OpLT, domain.OpLE, domain.OpBetween}
	dateOps     = []domain.Operator{domain.OpBefore, domain.OpAfter, domain.OpBetween, domain.OpOlderThan, domain.OpNewerThan, domain.OpIsNull, domain.OpIsNotNull}
	boolOps     = []domain.Operator{domain.OpEquals, domain.OpNotEquals}
	arrayOps    = []domain.Operator{domain.OpContains, domain.OpNotContains, domain.OpContainsAny, domain.OpContainsAll, domain.OpIsEmpty, domain.OpIsNotEmpty}
	bothMedia   = []domain.MediaType{domain.MediaTypeMovie, domain.MediaTypeTVSeries}
	movieOnly   = []domain.MediaType{domain.MediaTypeMovie}
	seriesOnly  = []domain.MediaType{domain.MediaTypeTVSeries}
)

// DefaultFields returns the fixed, closed catalog of fields shipped by
// this engine. It is the sole input to the process-global Registry.
func DefaultFields() []Field {
	return []Field{
		{Key: "title", Label: "Title", Type: domain.FieldTypeString, DataSource: "plex", MediaTypes: bothMedia, AllowedOperators: stringOps},
		{Key: "year", Label: "Year", Type: domain.FieldTypeNumber, DataSource: "plex", MediaTypes: bothMedia, AllowedOperators: numberOps},
		{Key: "playCount", Label: "Play Count", Type: domain.FieldTypeNumber, DataSource: "tautulli", MediaTypes: bothMedia, AllowedOperators: numberOps},
		{Key: "neverWatched", Label: "Never Watched", Type: domain.FieldTypeBoolean, DataSource: "tautulli", MediaTypes: bothMedia, AllowedOperators: boolOps},
		{Key: "lastWatchedAt", Label: "Last Watched", Type: domain.FieldTypeDate, DataSource: "tautulli", MediaTypes: bothMedia, AllowedOperators: dateOps},
		{Key: "addedAt", Label: "Date Added", Type: domain.FieldTypeDate, DataSource: "plex", MediaTypes: bothMedia, AllowedOperators: dateOps},
		{Key: "fileSize", Label: "File Size", Type: domain.FieldTypeNumber, DataSource: "plex", MediaTypes: bothMedia, AllowedOperators: numberOps, Unit: domain.UnitBytes},
		{Key: "duration", Label: "Duration", Type: domain.FieldTypeNumber, DataSource: "plex", MediaTypes: bothMedia, AllowedOperators: numberOps, Unit: domain.UnitSeconds},
		{Key: "resolution", Label: "Resolution", Type: domain.FieldTypeEnum, DataSource: "plex", MediaTypes: bothMedia, AllowedOperators: ordinalOps,
			EnumValues: []EnumOption{{Value: "480p", Label: "480p"}, {Value: "720p", Label: "720p"}, {Value: "1080p", Label: "1080p"}, {Value: "4k", Label: "4K"}}},
		{Key: "videoCodec", Label: "Video Codec", Type: domain.FieldTypeEnum, DataSource: "plex", MediaTypes: bothMedia, AllowedOperators: stringOps,
			EnumValues: []EnumOption{{Value: "h264", Label: "H.264"}, {Value: "hevc", Label: "HEVC"}, {Value: "av1", Label: "AV1"}}},
		{Key: "bitrate", Label: "Bitrate", Type: domain.FieldTypeNumber, DataSource: "plex", MediaTypes: bothMedia, AllowedOperators: numberOps, Unit: domain.UnitKbps},
		{Key: "rating", Label: "Critic Rating", Type: domain.FieldTypeNumber, DataSource: "plex", MediaTypes: bothMedia, AllowedOperators: numberOps},
		{Key: "audienceRating", Label: "Audience Rating", Type: domain.FieldTypeNumber, DataSource: "plex", MediaTypes: bothMedia, AllowedOperators: numberOps},
		{Key: "contentRating", Label: "Content Rating", Type: domain.FieldTypeString, DataSource: "plex", MediaTypes: bothMedia, AllowedOperators: stringOps},
		{Key: "genres", Label: "Genres", Type: domain.FieldTypeArray, DataSource: "plex", MediaTypes: bothMedia, AllowedOperators: arrayOps},
		{Key: "labels", Label: "Labels", Type: domain.FieldTypeArray, DataSource: "plex", MediaTypes: bothMedia, AllowedOperators: arrayOps},
		{Key: "libraryId", Label: "Library", Type: domain.FieldTypeString, DataSource: "plex", MediaTypes: bothMedia, AllowedOperators: stringOps},

		{Key: "radarr.hasFile", Label: "Has File (Radarr)", Type: domain.FieldTypeBoolean, DataSource: "radarr", MediaTypes: movieOnly, AllowedOperators: boolOps},
		{Key: "radarr.monitored", Label: "Monitored (Radarr)", Type: domain.FieldTypeBoolean, DataSource: "radarr", MediaTypes: movieOnly, AllowedOperators: boolOps},
		{Key: "radarr.qualityProfileId", Label: "Quality Profile (Radarr)", Type: domain.FieldTypeNumber, DataSource: "radarr", MediaTypes: movieOnly, AllowedOperators: numberOps},
		{Key: "radarr.minimumAvailability", Label: "Minimum Availability (Radarr)", Type: domain.FieldTypeString, DataSource: "radarr", MediaTypes: movieOnly, AllowedOperators: stringOps},

		{Key: "sonarr.monitored", Label: "Monitored (Sonarr)", Type: domain.FieldTypeBoolean, DataSource: "sonarr", MediaTypes: seriesOnly, AllowedOperators: boolOps},
		{Key: "sonarr.status", Label: "Status (Sonarr)", Type: domain.FieldTypeEnum, DataSource: "sonarr", MediaTypes: seriesOnly, AllowedOperators: stringOps,
			EnumValues: []EnumOption{{Value: "continuing", Label: "Continuing"}, {Value: "ended", Label: "Ended"}}},
		{Key: "sonarr.episodeFileCount", Label: "Episode File Count (Sonarr)", Type: domain.FieldTypeNumber, DataSource: "sonarr", MediaTypes: seriesOnly, AllowedOperators: numberOps},
		{Key: "sonarr.percentOfEpisodes", Label: "Percent Downloaded (Sonarr)", Type: domain.FieldTypeNumber, DataSource: "sonarr", MediaTypes: seriesOnly, AllowedOperators: numberOps},
	}
}
