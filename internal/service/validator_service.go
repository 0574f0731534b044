package service

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/openretreat/office-sync/internal/models"
	appErrors "github.com/openretreat/office-sync/pkg/errors"
)

// ValidatorService checks adapted schedule rows against the meeting
// dictionary before any office is generated. A failed check never
// short-circuits: the whole sheet is scanned and every violation is
// reported in one error so the sheet owner fixes everything at once.
type ValidatorService struct {
	logger *zap.Logger
}

func NewValidatorService(logger *zap.Logger) *ValidatorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValidatorService{logger: logger}
}

// Validate returns nil when the schedule is publishable, or a
// *errors.ValidationError carrying every broken rule. Partitions are
// visited in ascending Start order and rows within a partition keep
// their sheet order, so repeated runs over the same sheet produce the
// same report.
func (v *ValidatorService) Validate(rows []models.ScheduleRow, dict models.MeetingDictionary) error {
	v.logger.Info("validating schedule rows", zap.Int("rows", len(rows)))

	var violations []appErrors.Violation
	addViolation := func(group, rule string, offending []models.ScheduleRow) {
		locations := make([]string, len(offending))
		for i, row := range offending {
			locations[i] = row.Title
		}
		violations = append(violations, appErrors.Violation{Group: group, Rule: rule, Locations: locations})
	}

	if len(rows) == 0 {
		addViolation("-", "You are not allowed to upload a spreadsheet without any rows", nil)
	}

	partitions := partitionByStart(rows)
	for _, start := range sortedStarts(partitions) {
		peers := partitions[start]

		if hasRandomJoin(peers) && len(peers) > 1 {
			addViolation(start, "You can only set RandomJoin to TRUE when no other row has the same Start time", peers)
		}

		for i, row := range peers {
			for _, meetingID := range row.MeetingIds {
				if !dict.Has(meetingID) {
					addViolation(start,
						fmt.Sprintf("There's no join URL for meeting with id %s configured.", meetingID),
						[]models.ScheduleRow{row})
				}
			}
			for _, meetingID := range row.ReservedIds {
				if !dict.Has(meetingID) {
					addViolation(start,
						fmt.Sprintf("There's no join URL for reserve meeting with id %s configured.", meetingID),
						[]models.ScheduleRow{row})
				}
			}

			if conflicts := conflictingRows(peers, i, func(r models.ScheduleRow) []string { return r.MeetingIds }); len(conflicts) > 0 {
				addViolation(start, "You cannot use overlapping MeetingIds during the same Start time",
					append([]models.ScheduleRow{row}, conflicts...))
			}
			if conflicts := conflictingRows(peers, i, func(r models.ScheduleRow) []string { return r.ReservedIds }); len(conflicts) > 0 {
				addViolation(start, "You cannot use overlapping ReservedIds during the same Start time",
					append([]models.ScheduleRow{row}, conflicts...))
			}
		}
	}

	if len(violations) > 0 {
		v.logger.Warn("schedule validation failed", zap.Int("violations", len(violations)))
		return appErrors.NewValidationError(violations)
	}
	return nil
}

// partitionByStart buckets rows by their Start value, preserving row
// order within each bucket.
func partitionByStart(rows []models.ScheduleRow) map[string][]models.ScheduleRow {
	partitions := make(map[string][]models.ScheduleRow)
	for _, row := range rows {
		partitions[row.Start] = append(partitions[row.Start], row)
	}
	return partitions
}

func sortedStarts(partitions map[string][]models.ScheduleRow) []string {
	starts := make([]string, 0, len(partitions))
	for start := range partitions {
		starts = append(starts, start)
	}
	sort.Strings(starts)
	return starts
}

func hasRandomJoin(rows []models.ScheduleRow) bool {
	for _, row := range rows {
		if row.RandomJoin {
			return true
		}
	}
	return false
}

// conflictingRows returns the peers of rows[i] that share at least one
// id with it, in sheet order. Each row reports its own conflicts, so a
// colliding pair surfaces once from each side.
func conflictingRows(rows []models.ScheduleRow, i int, ids func(models.ScheduleRow) []string) []models.ScheduleRow {
	own := make(map[string]struct{})
	for _, id := range ids(rows[i]) {
		own[id] = struct{}{}
	}

	var conflicts []models.ScheduleRow
	for j, other := range rows {
		if j == i {
			continue
		}
		for _, id := range ids(other) {
			if _, clash := own[id]; clash {
				conflicts = append(conflicts, other)
				break
			}
		}
	}
	return conflicts
}
