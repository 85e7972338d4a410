package rest_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitquest/fitquest/game/battle"
	"github.com/fitquest/fitquest/model"
)

// pvp wires two users with one character each, both owning a neutral
// test skill, and an accepted battle between them (alice attacks).
type pvp struct {
	ts         *testServer
	aliceToken string
	bobToken   string
	aliceID    int64
	bobID      int64
	aliceChar  int64
	bobChar    int64
	battleID   int64
	skillID    int64
}

func newPvP(t *testing.T) *pvp {
	t.Helper()
	ts := newServer(t)
	p := &pvp{ts: ts}
	p.aliceToken, p.aliceID = ts.register(t, "alice")
	p.bobToken, p.bobID = ts.register(t, "bob")
	p.aliceChar = createCharacter(t, ts, p.aliceToken, "Hero")
	p.bobChar = createCharacter(t, ts, p.bobToken, "Villain")

	// Water skill on Fire characters: no same-element damage bonus.
	p.skillID = seedSkill(t, ts, model.Skill{
		Name: "Splash", Accuracy: 100, Damage: 20, ManaCost: 10,
		Element: model.ElementWater, PurchaseCost: 30,
	})
	for _, charID := range []int64{p.aliceChar, p.bobChar} {
		require.NoError(t, ts.db.Create(&model.SkillOwnership{CharacterID: charID, SkillID: p.skillID}).Error)
	}

	w := ts.do(http.MethodPost, "/api/battles/requests", p.aliceToken,
		map[string]int64{"character_id": p.aliceChar, "user_id": p.bobID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		RequestID int64 `json:"request_id"`
	}
	decode(t, w, &created)

	w = ts.do(http.MethodPost, "/api/battles/requests/1/accept", p.bobToken,
		map[string]int64{"character_id": p.bobChar})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var accepted struct {
		BattleID int64 `json:"battle_id"`
	}
	decode(t, w, &accepted)
	p.battleID = accepted.BattleID
	return p
}

func TestBattleRequestSelf(t *testing.T) {
	ts := newServer(t)
	token, userID := ts.register(t, "alice")
	charID := createCharacter(t, ts, token, "Hero")

	w := ts.do(http.MethodPost, "/api/battles/requests", token,
		map[string]int64{"character_id": charID, "user_id": userID})
	require.Equal(t, http.StatusForbidden, w.Code)
	var resp struct {
		Message string `json:"message"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "Cannot request battle with yourself.", resp.Message)
}

func TestBattleRequestDuplicate(t *testing.T) {
	ts := newServer(t)
	aliceToken, _ := ts.register(t, "alice")
	_, bobID := ts.register(t, "bob")
	charID := createCharacter(t, ts, aliceToken, "Hero")

	body := map[string]int64{"character_id": charID, "user_id": bobID}
	w := ts.do(http.MethodPost, "/api/battles/requests", aliceToken, body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(http.MethodPost, "/api/battles/requests", aliceToken, body)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCancelRequest(t *testing.T) {
	ts := newServer(t)
	aliceToken, _ := ts.register(t, "alice")
	bobToken, bobID := ts.register(t, "bob")
	strangerToken, _ := ts.register(t, "carol")
	charID := createCharacter(t, ts, aliceToken, "Hero")

	w := ts.do(http.MethodPost, "/api/battles/requests", aliceToken,
		map[string]int64{"character_id": charID, "user_id": bobID})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(http.MethodDelete, "/api/battles/requests/1", strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The requestee may decline.
	w = ts.do(http.MethodDelete, "/api/battles/requests/1", bobToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAcceptConsumesRequest(t *testing.T) {
	p := newPvP(t)

	var requests int64
	require.NoError(t, p.ts.db.Model(&model.BattleRequest{}).Count(&requests).Error)
	assert.Zero(t, requests)

	var b model.Battle
	require.NoError(t, p.ts.db.First(&b, p.battleID).Error)
	assert.Equal(t, p.aliceChar, b.AttackerID)
	require.NotNil(t, b.DefenderID)
	assert.Equal(t, p.bobChar, *b.DefenderID)
	assert.False(t, b.Finished)
}

func TestAcceptDeadCharacterRejected(t *testing.T) {
	ts := newServer(t)
	aliceToken, _ := ts.register(t, "alice")
	bobToken, bobID := ts.register(t, "bob")
	aliceChar := createCharacter(t, ts, aliceToken, "Hero")
	bobChar := createCharacter(t, ts, bobToken, "Villain")
	require.NoError(t, ts.db.Model(&model.Character{}).Where("id = ?", aliceChar).
		Update("health", 0).Error)

	w := ts.do(http.MethodPost, "/api/battles/requests", aliceToken,
		map[string]int64{"character_id": aliceChar, "user_id": bobID})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(http.MethodPost, "/api/battles/requests/1/accept", bobToken,
		map[string]int64{"character_id": bobChar})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Message string `json:"message"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "Cannot initiate battle with no health.", resp.Message)
}

func TestAcceptWhileAlreadyInBattle(t *testing.T) {
	p := newPvP(t)
	carolToken, _ := addThirdUser(t, p)

	w := p.ts.do(http.MethodPost, "/api/battles/requests", carolToken,
		map[string]int64{"character_id": 3, "user_id": p.aliceID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Alice's character is still fighting bob.
	w = p.ts.do(http.MethodPost, "/api/battles/requests/2/accept", p.aliceToken,
		map[string]int64{"character_id": p.aliceChar})
	require.Equal(t, http.StatusConflict, w.Code)
	var resp struct {
		Message string `json:"message"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "Hero is already in a battle.", resp.Message)
}

// addThirdUser adds a third user with one character to a pvp fixture.
func addThirdUser(t *testing.T, p *pvp) (string, int64) {
	t.Helper()
	token, userID := p.ts.register(t, "carol")
	createCharacter(t, p.ts, token, "Rogue")
	return token, userID
}

func TestUseSkillTurn(t *testing.T) {
	p := newPvP(t)
	p.ts.engine.SetRNG(&seqRNG{vals: []float64{0.5}})

	w := p.ts.do(http.MethodPost, "/api/battles/1/skill", p.aliceToken,
		map[string]int64{"skill_id": p.skillID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result battle.TurnResult
	decode(t, w, &result)
	assert.Equal(t, 100, result.Attacker.Health)
	assert.Equal(t, 30, result.Attacker.Mana)
	assert.Equal(t, 80, result.Defender.Health)
	assert.Equal(t, 40, result.Defender.Mana)
	require.Len(t, result.Logs, 1)
	assert.Contains(t, result.Logs[0].Result, "Hero used Splash.")
	assert.Contains(t, result.Logs[0].Result, "Dealt 20 damage to Villain!")

	// Persisted: the defender's character row took the hit.
	var ch model.Character
	require.NoError(t, p.ts.db.First(&ch, p.bobChar).Error)
	assert.Equal(t, 80, ch.Health)
}

func TestUseSkillNotYourTurn(t *testing.T) {
	p := newPvP(t)

	w := p.ts.do(http.MethodPost, "/api/battles/1/skill", p.bobToken,
		map[string]int64{"skill_id": p.skillID})
	require.Equal(t, http.StatusForbidden, w.Code)
	var resp struct {
		Message string `json:"message"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "Not your turn.", resp.Message)
}

func TestUseSkillInsufficientMana(t *testing.T) {
	p := newPvP(t)
	require.NoError(t, p.ts.db.Model(&model.Character{}).Where("id = ?", p.aliceChar).
		Update("mana", 5).Error)

	w := p.ts.do(http.MethodPost, "/api/battles/1/skill", p.aliceToken,
		map[string]int64{"skill_id": p.skillID})
	require.Equal(t, http.StatusForbidden, w.Code)
	var resp struct {
		Message string `json:"message"`
		Current int    `json:"current"`
		Cost    int    `json:"cost"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "10 Mana is needed to use Splash!", resp.Message)
	assert.Equal(t, 5, resp.Current)
	assert.Equal(t, 10, resp.Cost)

	// The rejected action burns nothing.
	var b model.Battle
	require.NoError(t, p.ts.db.First(&b, p.battleID).Error)
	assert.Zero(t, b.Turns)
}

func TestUseSkillNotOwned(t *testing.T) {
	p := newPvP(t)
	unowned := seedSkill(t, p.ts, model.Skill{
		Name: "Meteor", Accuracy: 80, Damage: 50, ManaCost: 30,
		Element: model.ElementFire, PurchaseCost: 120,
	})

	w := p.ts.do(http.MethodPost, "/api/battles/1/skill", p.aliceToken,
		map[string]int64{"skill_id": unowned})
	require.Equal(t, http.StatusForbidden, w.Code)
	var resp struct {
		Message string `json:"message"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "You do not own this skill.", resp.Message)
}

func TestGuardRestoresMana(t *testing.T) {
	p := newPvP(t)

	// Fresh characters start at 40/50 mana, so the +20 guard clamps to max.
	w := p.ts.do(http.MethodPost, "/api/battles/1/guard", p.aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result battle.TurnResult
	decode(t, w, &result)
	assert.Equal(t, 50, result.Attacker.Mana)
	require.Len(t, result.Logs, 1)
	assert.Contains(t, result.Logs[0].Result, "[+10 Mana]")

	// Turn passed to the defender.
	w = p.ts.do(http.MethodPost, "/api/battles/1/guard", p.bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestForfeitEndsBattle(t *testing.T) {
	p := newPvP(t)

	w := p.ts.do(http.MethodPost, "/api/battles/1/forfeit", p.aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result battle.TurnResult
	decode(t, w, &result)
	assert.Equal(t, 0, result.Attacker.Health)
	require.Len(t, result.Logs, 1)
	assert.Contains(t, result.Logs[0].Result, "Villain wins!")

	var b model.Battle
	require.NoError(t, p.ts.db.First(&b, p.battleID).Error)
	assert.True(t, b.Finished)
	require.NotNil(t, b.WinnerID)
	assert.Equal(t, p.bobChar, *b.WinnerID)

	w = p.ts.do(http.MethodPost, "/api/battles/1/guard", p.bobToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	var resp struct {
		Message string `json:"message"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "Battle has already ended.", resp.Message)
}

func TestGetBattleState(t *testing.T) {
	p := newPvP(t)
	p.ts.engine.SetRNG(&seqRNG{vals: []float64{0.5}})
	w := p.ts.do(http.MethodPost, "/api/battles/1/skill", p.aliceToken,
		map[string]int64{"skill_id": p.skillID})
	require.Equal(t, http.StatusOK, w.Code)

	w = p.ts.do(http.MethodGet, "/api/battles/1", p.bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		BattleID int64 `json:"battle_id"`
		Turns    int   `json:"turns"`
		Finished bool  `json:"finished"`
		Last     struct {
			Result string `json:"result"`
		} `json:"last"`
		Attacker battle.FighterState `json:"attacker"`
		Defender battle.FighterState `json:"defender"`
	}
	decode(t, w, &resp)
	assert.Equal(t, p.battleID, resp.BattleID)
	assert.Equal(t, 1, resp.Turns)
	assert.False(t, resp.Finished)
	assert.Contains(t, resp.Last.Result, "Dealt 20 damage")
	assert.Equal(t, 80, resp.Defender.Health)
}

func TestGetBattleByCharacter(t *testing.T) {
	p := newPvP(t)

	w := p.ts.do(http.MethodGet, "/api/characters/1/battle", p.aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		BattleID int64 `json:"battle_id"`
		Finished bool  `json:"finished"`
	}
	decode(t, w, &resp)
	assert.Equal(t, p.battleID, resp.BattleID)
	assert.False(t, resp.Finished)

	// Only the character's owner may look it up this way.
	w = p.ts.do(http.MethodGet, "/api/characters/1/battle", p.bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// No ongoing battle once it ends.
	w = p.ts.do(http.MethodPost, "/api/battles/1/forfeit", p.aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = p.ts.do(http.MethodGet, "/api/characters/1/battle", p.aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
